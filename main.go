package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamestore/internal/app"
	"gamestore/internal/config"
	"gamestore/internal/database"
	"gamestore/internal/email"
	"gamestore/internal/lib/logger"
	"gamestore/internal/models"
	"gamestore/internal/repositories"
	"gamestore/internal/services"
	"gamestore/pkg/rabbitmq"

	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gamestore: %v", err)
	}
}

func run() error {
	// --- Configuration ---
	if err := loadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(viper.New())
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	logg := logger.SetupLogger(cfg.Env)
	logg.Info("starting gamestore", slog.String("env", cfg.Env), slog.String("driver", cfg.DatabaseDriver))

	// --- Database ---
	db, err := database.Open(database.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseDSN})
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logg.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := database.Migrate(db); err != nil {
		return errors.Wrap(err, "migrate database")
	}

	// --- Initialize RabbitMQ Client ---
	// Without a broker, order events are skipped and emails go straight to the log.
	opts := app.Options{JWTSecret: cfg.JWTSecret, JWTTTL: cfg.JWTTTL}
	if cfg.BrokerEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:    cfg.RabbitMQURL,
			Queues: []string{services.OrderCreatedQueue, email.OutboundQueue},
			Logger: logg,
		})
		if err != nil {
			return errors.Wrap(err, "connect to rabbitmq")
		}
		defer mqClient.Close()

		opts.Publisher = mqClient
		opts.Sender = email.NewQueueSender(mqClient)

		worker := email.NewWorker(logg, email.NewLogSender(logg))
		if err := mqClient.Consume(email.OutboundQueue, worker.HandleDelivery); err != nil {
			return errors.Wrap(err, "consume outbound email")
		}
		if err := mqClient.Consume(services.OrderCreatedQueue, app.OrderEventLogger(logg)); err != nil {
			return errors.Wrap(err, "consume order events")
		}
	} else {
		logg.Warn("RABBITMQ_URL not set, order events disabled")
	}

	application := app.New(logg, db, opts)

	ctx := context.Background()
	if err := application.Auth.SeedOwner(ctx, cfg.OwnerEmail, cfg.OwnerPassword); err != nil {
		return errors.Wrap(err, "seed owner")
	}
	if cfg.Env == logger.EnvLocal {
		seedProducts(ctx, logg, application.Store.Products)
	}

	// --- Start HTTP Server ---
	logg.Info("starting server", slog.String("addr", cfg.AppPort))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "server failed")
	case <-quit:
	}

	logg.Info("shutting down server")
	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		logg.Error("error during shutdown", slog.Any("error", err))
	}
	logg.Info("server gracefully stopped")
	return nil
}

// loadDotEnv reads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "load %s", path)
}

// seedProducts fills an empty catalog with a few demo products for local development.
func seedProducts(ctx context.Context, logg *slog.Logger, repo repositories.ProductRepository) {
	existing, err := repo.List(ctx, repositories.ProductFilter{})
	if err != nil || len(existing) > 0 {
		return
	}

	products := []models.Product{
		{Name: "Terraforming Mars", Category: models.CategoryGame, Description: "Engine-building board game", Price: decimal.NewFromInt(70), BuyPrice: decimal.NewFromInt(38), StockQty: 6},
		{Name: "Dune", Category: models.CategoryBook, Description: "Paperback edition", Price: decimal.RequireFromString("14.99"), BuyPrice: decimal.RequireFromString("6.50"), StockQty: 20},
		{Name: "Wooden Train Set", Category: models.CategoryToy, Description: "42 pieces", Price: decimal.NewFromInt(45), BuyPrice: decimal.NewFromInt(22), StockQty: 8},
	}
	for i := range products {
		products[i].Slug = slug.Make(products[i].Name)
		products[i].CreatedAt = time.Now().UTC()
		if err := repo.Create(ctx, &products[i]); err != nil {
			logg.Error("error seeding product", slog.String("name", products[i].Name), slog.Any("error", err))
			continue
		}
		logg.Info("seeded product", slog.String("name", products[i].Name), slog.Uint64("id", uint64(products[i].ID)))
	}
}
