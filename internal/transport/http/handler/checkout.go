package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	checkoutservice "github.com/sakashimaa/go-bookstore/internal/checkout/service"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/middleware"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service  checkoutservice.CheckoutService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCheckoutHandler(service checkoutservice.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
	CouponCode      string `json:"coupon_code"`
}

func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	input := new(checkoutRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	orderID, err := h.service.Checkout(c.UserContext(), checkoutservice.CheckoutInput{
		OwnerID:         ownerID,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		CouponCode:      input.CouponCode,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id": orderID,
		"status":   "success",
	})
}
