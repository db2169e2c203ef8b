package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const usersAdminPath = "/users-admin"

// UsersAdminHandler lets owners manage accounts and inspect customer history.
type UsersAdminHandler struct {
	log     *slog.Logger
	users   *services.UserAdminService
	tiering *services.TieringService
}

// NewUsersAdminHandler creates a new UsersAdminHandler.
func NewUsersAdminHandler(log *slog.Logger, users *services.UserAdminService, tiering *services.TieringService) *UsersAdminHandler {
	return &UsersAdminHandler{log: log, users: users, tiering: tiering}
}

// RegisterRoutes registers the user admin routes with the Fiber app.
func (h *UsersAdminHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	adminRoutes := router.Group(usersAdminPath, guards...)
	adminRoutes.Get("/", h.HandleList)
	adminRoutes.Get("/history/:id", h.HandleHistory)
	adminRoutes.Post("/:id/role", h.HandleSetRole)
	adminRoutes.Post("/:id/delete", h.HandleDelete)
}

func (h *UsersAdminHandler) HandleList(c *fiber.Ctx) error {
	const op = "handlers.UsersAdminHandler.HandleList"
	users, err := h.users.ListUsers(c.UserContext())
	if err != nil {
		return serverError(c, h.log, op, err)
	}
	return c.JSON(fiber.Map{"users": users, "roles": models.Roles})
}

// HandleHistory returns one customer's orders with revenue, profit and tier.
func (h *UsersAdminHandler) HandleHistory(c *fiber.Ctx) error {
	const op = "handlers.UsersAdminHandler.HandleHistory"
	history, err := h.tiering.UserSalesHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return notFound(c)
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(history)
}

type roleRequest struct {
	Role string `json:"role" form:"role"`
}

func (h *UsersAdminHandler) HandleSetRole(c *fiber.Ctx) error {
	const op = "handlers.UsersAdminHandler.HandleSetRole"
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	user, err := h.users.SetRole(c.UserContext(), c.Params("id"), req.Role)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound):
		return seeOther(c, usersAdminPath, flash(FlashError, "User not found."))
	case errors.Is(err, services.ErrRoleOperationFailed):
		return seeOther(c, usersAdminPath, flash(FlashError, err.Error()))
	default:
		return serverError(c, h.log, op, err)
	}

	msg := fmt.Sprintf("Role for %s set to %s.", user.Email, user.Role)
	return seeOther(c, usersAdminPath, flash(FlashOK, msg))
}

// HandleDelete removes an account. A missing account is a quiet redirect.
func (h *UsersAdminHandler) HandleDelete(c *fiber.Ctx) error {
	const op = "handlers.UsersAdminHandler.HandleDelete"
	user, err := h.users.DeleteUser(c.UserContext(), c.Params("id"))
	switch {
	case err == nil:
		return seeOther(c, usersAdminPath, flash(FlashOK, fmt.Sprintf("Deleted %s.", user.Email)))
	case errors.Is(err, services.ErrNotFound):
		return seeOther(c, usersAdminPath, nil)
	default:
		return serverError(c, h.log, op, err)
	}
}
