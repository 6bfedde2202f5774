package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/cart"
	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// Stable error codes; raw errors are logged, never returned.
const (
	codeInvalidBody        = "invalid_body"
	codeValidation         = "validation_failed"
	codeInternal           = "internal_error"
	codeNotFound           = "not_found"
	codeEmailTaken         = "email_taken"
	codeInvalidCredentials = "invalid_credentials"
	codeLocalAuthDisabled  = "local_auth_disabled"
	codeLogoutFailed       = "logout_failed"
)

// respond writes body with the notifications pending on the caller's session.
func respond(c *fiber.Ctx, status int, body fiber.Map) error {
	notifications := []cart.Notification{}
	if session := middleware.SessionFrom(c); session != nil {
		notifications = session.Inbox.Drain()
	}
	body["notifications"] = notifications
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return respond(c, fiber.StatusBadRequest, fiber.Map{
		"message": "Invalid request body",
		"error":   codeInvalidBody,
	})
}

// validationFailed answers 400 when err is a *services.ValidationError.
func validationFailed(c *fiber.Ctx, err error) (bool, error) {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		return false, nil
	}
	return true, respond(c, fiber.StatusBadRequest, fiber.Map{
		"message": "Validation failed",
		"error":   codeValidation,
		"errors":  verr.Fields,
	})
}

func serverError(c *fiber.Ctx, message string, err error) error {
	log.Printf("%s: %v", message, err)
	return respond(c, fiber.StatusInternalServerError, fiber.Map{
		"message": message,
		"error":   codeInternal,
	})
}
