package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/repositories"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const productsAdminPath = "/products-admin"

// adminProduct adds the margin figures shown on the admin list.
type adminProduct struct {
	models.Product
	MarginPerUnit decimal.Decimal `json:"margin_per_unit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

func toAdminProduct(p models.Product) adminProduct {
	return adminProduct{
		Product:       p,
		MarginPerUnit: p.MarginPerUnit(),
		MarginPercent: p.MarginPercent().Round(2),
	}
}

// ProductAdminHandler handles catalog maintenance for owners.
type ProductAdminHandler struct {
	log     *slog.Logger
	service *services.ProductService
}

// NewProductAdminHandler creates a new ProductAdminHandler.
func NewProductAdminHandler(log *slog.Logger, service *services.ProductService) *ProductAdminHandler {
	return &ProductAdminHandler{log: log, service: service}
}

// RegisterRoutes registers the product admin routes with the Fiber app.
func (h *ProductAdminHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	adminRoutes := router.Group(productsAdminPath, guards...)
	adminRoutes.Get("/", h.HandleList)
	adminRoutes.Post("/", h.HandleCreate)
	adminRoutes.Get("/:id", h.HandleGet)
	adminRoutes.Post("/:id", h.HandleUpdate)
	adminRoutes.Post("/:id/delete", h.HandleDelete)
}

func (h *ProductAdminHandler) HandleList(c *fiber.Ctx) error {
	const op = "handlers.ProductAdminHandler.HandleList"
	products, err := h.service.ListProducts(c.UserContext(), repositories.ProductFilter{})
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	rows := make([]adminProduct, 0, len(products))
	for _, p := range products {
		rows = append(rows, toAdminProduct(p))
	}
	return c.JSON(rows)
}

func (h *ProductAdminHandler) HandleGet(c *fiber.Ctx) error {
	const op = "handlers.ProductAdminHandler.HandleGet"
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
	return c.JSON(toAdminProduct(*product))
}

// HandleCreate binds only the whitelisted product fields.
func (h *ProductAdminHandler) HandleCreate(c *fiber.Ctx) error {
	const op = "handlers.ProductAdminHandler.HandleCreate"
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		if ve, ok := asValidation(err); ok {
			return validationFailed(c, ve)
		}
		return serverError(c, h.log, op, err)
	}
	return seeOther(c, productsAdminPath, flash(FlashOK, fmt.Sprintf("Created %s.", product.Name)), product)
}

func (h *ProductAdminHandler) HandleUpdate(c *fiber.Ctx) error {
	const op = "handlers.ProductAdminHandler.HandleUpdate"
	id, ok := paramID(c, "id")
	if !ok {
		return notFound(c)
	}
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		if ve, ok := asValidation(err); ok {
			return validationFailed(c, ve)
		}
		return serverError(c, h.log, op, err)
	}
	return seeOther(c, productsAdminPath, flash(FlashOK, fmt.Sprintf("Updated %s.", product.Name)), product)
}

// HandleDelete refuses products that orders still reference.
func (h *ProductAdminHandler) HandleDelete(c *fiber.Ctx) error {
	const op = "handlers.ProductAdminHandler.HandleDelete"
	id, ok := paramID(c, "id")
	if !ok {
		return notFound(c)
	}
	err := h.service.DeleteProduct(c.UserContext(), id)
	switch {
	case err == nil:
		return seeOther(c, productsAdminPath, flash(FlashOK, "Product deleted."))
	case errors.Is(err, services.ErrNotFound):
		return notFound(c)
	case errors.Is(err, services.ErrProductInUse):
		return c.Status(fiber.StatusConflict).JSON(Result{
			Redirect: productsAdminPath,
			Flash:    flash(FlashError, "This product appears in past orders and cannot be deleted."),
		})
	default:
		return serverError(c, h.log, op, err)
	}
}
