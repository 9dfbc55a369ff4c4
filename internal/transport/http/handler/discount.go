package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	discountdomain "github.com/sakashimaa/go-bookstore/internal/discount/domain"
	discountservice "github.com/sakashimaa/go-bookstore/internal/discount/service"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

type DiscountHandler struct {
	service  discountservice.DiscountService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewDiscountHandler(service discountservice.DiscountService, logger *zap.Logger) *DiscountHandler {
	return &DiscountHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type createCouponRequest struct {
	Code           string    `json:"code" validate:"required"`
	PercentOff     int64     `json:"percent_off" validate:"required,gte=1,lte=100"`
	ExpiresAt      time.Time `json:"expires_at" validate:"required"`
	MaxRedemptions int64     `json:"max_redemptions" validate:"required,gt=0"`
}

func (h *DiscountHandler) Create(c *fiber.Ctx) error {
	input := new(createCouponRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	if err := h.service.Create(c.UserContext(), &discountdomain.Coupon{
		Code:           input.Code,
		PercentOff:     input.PercentOff,
		ExpiresAt:      input.ExpiresAt,
		MaxRedemptions: input.MaxRedemptions,
	}); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

func (h *DiscountHandler) Validate(c *fiber.Ctx) error {
	coupon, err := h.service.Validate(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(coupon)
}
