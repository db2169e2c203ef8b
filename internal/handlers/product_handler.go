package handlers

import (
	"errors"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/repositories"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	log     *slog.Logger
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(log *slog.Logger, service *services.ProductService) *ProductHandler {
	return &ProductHandler{log: log, service: service}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	productRoutes := router.Group("/products", guards...)
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
}

// HandleListProducts lists the catalog filtered by ?category= and ?search=.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	const op = "handlers.ProductHandler.HandleListProducts"
	filter := repositories.ProductFilter{
		Category: models.Category(c.Query("category")),
		Search:   c.Query("search"),
	}
	products, err := h.service.ListProducts(c.UserContext(), filter)
	if err != nil {
		if ve, ok := asValidation(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  ve.Fields,
			})
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(products)
}

// HandleGetProduct returns one product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	const op = "handlers.ProductHandler.HandleGetProduct"
	id, ok := paramID(c, "id")
	if !ok {
		return notFound(c)
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(product)
}
