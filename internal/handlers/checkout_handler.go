package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const checkoutPath = "/checkout"

// CheckoutHandler previews and confirms the caller's cart.
type CheckoutHandler struct {
	log      *slog.Logger
	checkout *services.CheckoutService
	orders   *services.OrderService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(log *slog.Logger, checkout *services.CheckoutService, orders *services.OrderService) *CheckoutHandler {
	return &CheckoutHandler{log: log, checkout: checkout, orders: orders}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	checkoutRoutes := router.Group(checkoutPath, guards...)
	checkoutRoutes.Get("/", h.HandlePreview)
	checkoutRoutes.Post("/confirm", h.HandleConfirm)
	checkoutRoutes.Get("/success/:id", h.HandleSuccess)
}

func (h *CheckoutHandler) HandlePreview(c *fiber.Ctx) error {
	const op = "handlers.CheckoutHandler.HandlePreview"
	preview, err := h.checkout.Preview(c.UserContext(), caller(c).UserID)
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	return c.JSON(preview)
}

// HandleConfirm runs the checkout. An empty cart is a quiet redirect; a stock shortfall
// sends the user back to the preview with the reason.
func (h *CheckoutHandler) HandleConfirm(c *fiber.Ctx) error {
	const op = "handlers.CheckoutHandler.HandleConfirm"
	order, err := h.checkout.Confirm(c.UserContext(), caller(c).UserID)
	switch {
	case err == nil:
		return seeOther(c, fmt.Sprintf("%s/success/%d", checkoutPath, order.ID), flash(FlashOK, fmt.Sprintf("Order #%d placed.", order.ID)))
	case errors.Is(err, services.ErrNothingToCheckout):
		return seeOther(c, checkoutPath, nil)
	case errors.Is(err, services.ErrInsufficientStock):
		return seeOther(c, checkoutPath, flash(FlashError, err.Error()))
	default:
		return serverError(c, h.log, op, err)
	}
}

// HandleSuccess shows the receipt of an order the caller owns.
func (h *CheckoutHandler) HandleSuccess(c *fiber.Ctx) error {
	const op = "handlers.CheckoutHandler.HandleSuccess"
	id, ok := paramID(c, "id")
	if !ok {
		return notFound(c)
	}
	order, err := h.orders.GetOrder(c.UserContext(), caller(c).UserID, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(order)
}
