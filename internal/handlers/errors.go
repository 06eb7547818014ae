package handlers

import (
	"errors"

	"swiftfiles/internal/logging"
	"swiftfiles/internal/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to a status and a client-safe message.
// Unexpected errors are logged and reported as a generic server error.
func respondError(c *fiber.Ctx, log logging.Logger, err error) error {
	status, message := fiber.StatusInternalServerError, "Server error"
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		status, message = fiber.StatusBadRequest, "Email already in use"
	case errors.Is(err, services.ErrMissingFile):
		status, message = fiber.StatusBadRequest, "No file uploaded"
	case errors.Is(err, services.ErrValidation):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, services.ErrInvalidToken):
		status, message = fiber.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, services.ErrNotFound):
		status, message = fiber.StatusNotFound, "File not found"
	case errors.Is(err, services.ErrPayloadTooLarge):
		status, message = fiber.StatusRequestEntityTooLarge, "File exceeds the upload size limit"
	default:
		log.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// ErrorHandler renders Fiber's own errors (unknown route, oversized body) as JSON.
func ErrorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		return respondError(c, log, err)
	}
}
