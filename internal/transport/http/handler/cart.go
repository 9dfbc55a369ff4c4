package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	cartservice "github.com/sakashimaa/go-bookstore/internal/cart/service"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/middleware"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

type CartHandler struct {
	service  cartservice.CartService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCartHandler(service cartservice.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	cart, err := h.service.Get(c.UserContext(), ownerID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(cart)
}

type addItemRequest struct {
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	input := new(addItemRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	cart, err := h.service.AddItem(c.UserContext(), ownerID, input.BookID, input.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(cart)
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"gte=0"`
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	input := new(setQuantityRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	cart, err := h.service.SetQuantity(c.UserContext(), ownerID, bookID, input.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(cart)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	cart, err := h.service.RemoveItem(c.UserContext(), ownerID, bookID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(cart)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.service.Clear(c.UserContext(), ownerID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
