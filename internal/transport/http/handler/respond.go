package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.uber.org/zap"
)

func statusOf(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		return fiber.StatusBadRequest
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeConflict:
		return fiber.StatusConflict
	case apperr.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Unexpected errors
// are logged with their cause but leave the process with a generic body.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	status := statusOf(err)

	if status == fiber.StatusInternalServerError {
		mylogger.Error(
			c.UserContext(),
			logger,
			"Request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return c.Status(status).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
