package handlers

import (
	"errors"
	"log/slog"

	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const cartPath = "/cart"

// CartHandler handles the signed-in user's cart.
type CartHandler struct {
	log     *slog.Logger
	service *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(log *slog.Logger, service *services.CartService) *CartHandler {
	return &CartHandler{log: log, service: service}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	cartRoutes := router.Group(cartPath, guards...)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/add/:productId", h.HandleAdd)
	cartRoutes.Post("/update/:id", h.HandleUpdate)
	cartRoutes.Post("/remove/:id", h.HandleRemove)
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	const op = "handlers.CartHandler.HandleGetCart"
	items, err := h.service.ListCart(c.UserContext(), caller(c).UserID)
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

// HandleAdd adds ?qty= (default 1) units of a product to the cart.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	const op = "handlers.CartHandler.HandleAdd"
	productID, ok := paramID(c, "productId")
	if !ok {
		return notFound(c)
	}
	qty, err := intValue(c, "qty", 1)
	if err != nil {
		return seeOther(c, cartPath, flash(FlashError, err.Error()))
	}

	_, err = h.service.AddToCart(c.UserContext(), caller(c).UserID, productID, qty)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		if ve, ok := asValidation(err); ok {
			return seeOther(c, cartPath, flash(FlashError, firstMessage(ve)))
		}
		return serverError(c, h.log, op, err)
	}
	return seeOther(c, cartPath, flash(FlashOK, "Added to cart."))
}

// HandleUpdate sets the quantity of a line. Lines the caller does not own are ignored.
func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	const op = "handlers.CartHandler.HandleUpdate"
	id, ok := paramID(c, "id")
	if !ok {
		return seeOther(c, cartPath, nil)
	}
	qty, err := intValue(c, "qty", 0)
	if err != nil {
		return seeOther(c, cartPath, flash(FlashError, err.Error()))
	}

	if err := h.service.UpdateQuantity(c.UserContext(), caller(c).UserID, id, qty); err != nil {
		if ve, ok := asValidation(err); ok {
			return seeOther(c, cartPath, flash(FlashError, firstMessage(ve)))
		}
		return serverError(c, h.log, op, err)
	}
	return seeOther(c, cartPath, nil)
}

// HandleRemove deletes a line. Lines the caller does not own are ignored.
func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	const op = "handlers.CartHandler.HandleRemove"
	id, ok := paramID(c, "id")
	if !ok {
		return seeOther(c, cartPath, nil)
	}
	if err := h.service.RemoveItem(c.UserContext(), caller(c).UserID, id); err != nil {
		return serverError(c, h.log, op, err)
	}
	return seeOther(c, cartPath, nil)
}
