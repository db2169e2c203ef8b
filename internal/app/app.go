// Package app wires repositories, services and handlers into a Fiber application.
package app

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"gamestore/internal/email"
	"gamestore/internal/handlers"
	"gamestore/internal/middleware"
	"gamestore/internal/models"
	"gamestore/internal/repositories"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Options carries the collaborators that differ between deployments.
type Options struct {
	JWTSecret string
	JWTTTL    time.Duration
	// Publisher receives order.created events. Nil disables them.
	Publisher services.EventPublisher
	// Sender delivers blast emails. Nil falls back to the log sender.
	Sender services.EmailSender
	// AccessLog receives the HTTP access log. Nil means stdout.
	AccessLog io.Writer
}

// App is the assembled HTTP application.
type App struct {
	Fiber *fiber.App
	Auth  *services.AuthService
	Store *repositories.Store
}

// New builds every service over db and registers the routes.
func New(log *slog.Logger, db *gorm.DB, opts Options) *App {
	store := repositories.NewStore(db)

	sender := opts.Sender
	if sender == nil {
		sender = email.NewLogSender(log)
	}

	// --- Initialize Services ---
	authService := services.NewAuthService(log, store.Users, opts.JWTSecret, opts.JWTTTL)
	productService := services.NewProductService(log, store.Products, store)
	cartService := services.NewCartService(log, store.Carts, store.Products)
	checkoutService := services.NewCheckoutService(log, store, opts.Publisher)
	orderService := services.NewOrderService(store.Orders)
	tieringService := services.NewTieringService(log, store.Users, store.Orders)
	blastService := services.NewEmailBlastService(log, tieringService, sender)
	userAdminService := services.NewUserAdminService(log, store.Users, store)

	// --- Initialize Fiber App ---
	f := fiber.New(fiber.Config{
		AppName:      "gamestore",
		ErrorHandler: errorHandler(log),
	})
	f.Use(recover.New())
	f.Use(logger.New(logger.Config{Output: opts.AccessLog}))

	f.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	signedIn := middleware.AuthRequired(log, authService)
	owner := middleware.RoleRequired(models.RoleOwner)

	// Public routes
	handlers.NewAuthHandler(log, authService).RegisterRoutes(f)
	handlers.NewProductHandler(log, productService).RegisterRoutes(f)

	// Signed-in users
	orderHandler := handlers.NewOrderHandler(log, orderService)
	handlers.NewCartHandler(log, cartService).RegisterRoutes(f, signedIn)
	handlers.NewCheckoutHandler(log, checkoutService, orderService).RegisterRoutes(f, signedIn)
	orderHandler.RegisterRoutes(f, signedIn)

	// Owners only
	handlers.NewProductAdminHandler(log, productService).RegisterRoutes(f, signedIn, owner)
	handlers.NewUsersAdminHandler(log, userAdminService, tieringService).RegisterRoutes(f, signedIn, owner)
	handlers.NewEmailsAdminHandler(log, blastService).RegisterRoutes(f, signedIn, owner)
	orderHandler.RegisterAdminRoutes(f, signedIn, owner)

	return &App{Fiber: f, Auth: authService, Store: store}
}

// errorHandler keeps Fiber's own errors (404 for unknown routes, 405, ...) and hides the rest.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		log.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}
