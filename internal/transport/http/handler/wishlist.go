package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/middleware"
	wishlistservice "github.com/sakashimaa/go-bookstore/internal/wishlist/service"
	"go.uber.org/zap"
)

type WishlistHandler struct {
	service wishlistservice.WishlistService
	logger  *zap.Logger
}

func NewWishlistHandler(service wishlistservice.WishlistService, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	books, err := h.service.List(c.UserContext(), ownerID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"books": books})
}

func (h *WishlistHandler) Add(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	if err := h.service.Add(c.UserContext(), ownerID, bookID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	bookID, err := strconv.ParseInt(c.Params("bookId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	if err := h.service.Remove(c.UserContext(), ownerID, bookID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
