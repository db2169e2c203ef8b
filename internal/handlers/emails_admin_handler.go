package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const emailsAdminPath = "/emails-admin"

// EmailsAdminHandler composes, previews and sends tier-targeted emails.
type EmailsAdminHandler struct {
	log     *slog.Logger
	service *services.EmailBlastService
}

// NewEmailsAdminHandler creates a new EmailsAdminHandler.
func NewEmailsAdminHandler(log *slog.Logger, service *services.EmailBlastService) *EmailsAdminHandler {
	return &EmailsAdminHandler{log: log, service: service}
}

// RegisterRoutes registers the email admin routes with the Fiber app.
func (h *EmailsAdminHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	adminRoutes := router.Group(emailsAdminPath, guards...)
	adminRoutes.Get("/", h.HandleCompose)
	adminRoutes.Post("/preview", h.HandlePreview)
	adminRoutes.Post("/send", h.HandleSend)
}

// HandleCompose lists the audiences a blast can target.
func (h *EmailsAdminHandler) HandleCompose(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"targets": []string{
			models.AudienceAll,
			string(models.TierBronze),
			string(models.TierSilver),
			string(models.TierGold),
			string(models.TierPlatinum),
		},
	})
}

func (h *EmailsAdminHandler) HandlePreview(c *fiber.Ctx) error {
	const op = "handlers.EmailsAdminHandler.HandlePreview"
	var blast services.Blast
	if err := c.BodyParser(&blast); err != nil {
		return badRequest(c, err)
	}
	preview, err := h.service.Preview(c.UserContext(), blast)
	if err != nil {
		if ve, ok := asValidation(err); ok {
			return validationFailed(c, ve)
		}
		return serverError(c, h.log, op, err)
	}
	return c.JSON(fiber.Map{
		"target":          preview.Target,
		"recipients":      preview.Recipients,
		"recipient_count": preview.RecipientCount,
		"flash":           flash(FlashInfo, fmt.Sprintf("Preview built: %d recipient(s).", preview.RecipientCount)),
	})
}

// HandleSend delivers the blast. Individual delivery failures are reported, not fatal.
func (h *EmailsAdminHandler) HandleSend(c *fiber.Ctx) error {
	const op = "handlers.EmailsAdminHandler.HandleSend"
	var blast services.Blast
	if err := c.BodyParser(&blast); err != nil {
		return badRequest(c, err)
	}

	report, err := h.service.Send(c.UserContext(), blast)
	if report == nil {
		switch {
		case errors.Is(err, services.ErrNoRecipients):
			return seeOther(c, emailsAdminPath, flash(FlashError, "No recipients match the selected audience."))
		case errors.Is(err, services.ErrInvalidInput):
			ve, _ := asValidation(err)
			return validationFailed(c, ve)
		default:
			return serverError(c, h.log, op, err)
		}
	}

	if len(report.Failed) > 0 {
		msg := fmt.Sprintf("Sent to %d recipient(s). %d failed.", len(report.Sent), len(report.Failed))
		return seeOther(c, emailsAdminPath, flash(FlashError, msg), report)
	}
	return seeOther(c, emailsAdminPath, flash(FlashOK, fmt.Sprintf("Sent to %d recipient(s).", len(report.Sent))), report)
}
