package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	stockdomain "github.com/sakashimaa/go-bookstore/internal/stock/domain"
	stockservice "github.com/sakashimaa/go-bookstore/internal/stock/service"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

type StockHandler struct {
	service  stockservice.StockService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewStockHandler(service stockservice.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *StockHandler) Get(c *fiber.Ctx) error {
	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	record, err := h.service.GetRecord(c.UserContext(), bookID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(record)
}

type setStockRequest struct {
	Quantity int64 `json:"quantity" validate:"gte=0"`
}

func (h *StockHandler) Set(c *fiber.Ctx) error {
	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	input := new(setStockRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	if err := h.service.SetQuantity(c.UserContext(), bookID, input.Quantity); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type adjustmentsRequest struct {
	Items []stockdomain.Adjustment `json:"items" validate:"required,min=1,dive"`
}

func (h *StockHandler) Increase(c *fiber.Ctx) error {
	input := new(adjustmentsRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.service.Increase(c.UserContext(), input.Items); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *StockHandler) CheckAvailability(c *fiber.Ctx) error {
	input := new(adjustmentsRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	shortages, err := h.service.CheckAvailability(c.UserContext(), input.Items)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"available": len(shortages) == 0,
		"shortages": shortages,
	})
}
