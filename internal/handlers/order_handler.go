package handlers

import (
	"errors"
	"log/slog"

	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	log     *slog.Logger
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(log *slog.Logger, service *services.OrderService) *OrderHandler {
	return &OrderHandler{log: log, service: service}
}

// RegisterRoutes registers the signed-in user's order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	orderRoutes := router.Group("/orders", guards...)
	orderRoutes.Get("/my", h.HandleMyOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// RegisterAdminRoutes registers the store-wide ledger view.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router, guards ...fiber.Handler) {
	router.Group("/orders-admin", guards...).Get("/", h.HandleAllOrders)
}

// HandleMyOrders returns the caller's orders, newest first, with revenue, profit and tier.
func (h *OrderHandler) HandleMyOrders(c *fiber.Ctx) error {
	const op = "handlers.OrderHandler.HandleMyOrders"
	history, err := h.service.History(c.UserContext(), caller(c).UserID)
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	return c.JSON(history)
}

// HandleGetOrderByID retrieves a single order the caller owns.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	const op = "handlers.OrderHandler.HandleGetOrderByID"
	id, ok := paramID(c, "id")
	if !ok {
		return notFound(c)
	}
	order, err := h.service.GetOrder(c.UserContext(), caller(c).UserID, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandleAllOrders(c *fiber.Ctx) error {
	const op = "handlers.OrderHandler.HandleAllOrders"
	all, err := h.service.AllOrders(c.UserContext())
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	return c.JSON(all)
}
