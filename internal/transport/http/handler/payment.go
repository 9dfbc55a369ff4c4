package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	paymentservice "github.com/sakashimaa/go-bookstore/internal/payment/service"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service  paymentservice.PaymentService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewPaymentHandler(service paymentservice.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type webhookRequest struct {
	Type     string `json:"type" validate:"required"`
	IntentID string `json:"intent_id" validate:"required"`
}

// Webhook receives provider callbacks. The provider retries on non-2xx, so
// only genuinely retryable failures should return an error status.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	input := new(webhookRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	var err error
	switch input.Type {
	case "payment_intent.succeeded":
		err = h.service.HandleSucceeded(c.UserContext(), input.IntentID)
	case "payment_intent.failed":
		err = h.service.HandleFailed(c.UserContext(), input.IntentID)
	default:
		// Unrecognized event types are acknowledged so the provider stops
		// redelivering them.
		mylogger.Info(
			c.UserContext(),
			h.logger,
			"Ignoring unhandled webhook type",
			zap.String("type", input.Type),
		)

		return c.SendStatus(fiber.StatusOK)
	}

	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
