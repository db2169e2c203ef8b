package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gamestore/internal/middleware"
	"gamestore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Flash kinds.
const (
	FlashOK    = "ok"
	FlashError = "error"
	FlashInfo  = "info"
)

// Flash is a one-shot message for the next page the client shows.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the body of every mutating response: where to go next and what to tell the user.
type Result struct {
	Redirect string      `json:"redirect"`
	Flash    *Flash      `json:"flash,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

func flash(kind, message string) *Flash {
	return &Flash{Kind: kind, Message: message}
}

// seeOther answers 303 with a Location header and the Result body.
func seeOther(c *fiber.Ctx, to string, f *Flash, data ...interface{}) error {
	res := Result{Redirect: to, Flash: f}
	if len(data) > 0 {
		res.Data = data[0]
	}
	c.Set(fiber.HeaderLocation, to)
	return c.Status(fiber.StatusSeeOther).JSON(res)
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// validationFailed re-shows a form: the request was not applied.
func validationFailed(c *fiber.Ctx, ve *services.ValidationError) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  ve.Fields,
	})
}

func serverError(c *fiber.Ctx, log *slog.Logger, op string, err error) error {
	log.Error("request failed", slog.String("op", op), slog.String("path", c.Path()), slog.Any("error", err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

// asValidation extracts the field errors of an InvalidInput failure.
func asValidation(err error) (*services.ValidationError, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// firstMessage flattens a validation error into one flash line.
func firstMessage(ve *services.ValidationError) string {
	if msg, ok := ve.Fields[""]; ok {
		return msg
	}
	return strings.TrimPrefix(ve.Error(), "invalid input: ")
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// intValue reads key from the query string, then the form body. def applies when both are empty.
func intValue(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		raw = c.FormValue(key)
	}
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: must be a whole number", key)
	}
	return v, nil
}

// caller returns the authenticated identity. Routes using it are always behind AuthRequired.
func caller(c *fiber.Ctx) *services.Identity {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return &services.Identity{}
	}
	return identity
}
