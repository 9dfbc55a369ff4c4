package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	catalogdomain "github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	service  catalogservice.CatalogService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCatalogHandler(service catalogservice.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	bookID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	book, err := h.service.GetByID(c.UserContext(), bookID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(book)
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))
	search := c.Query("search")

	books, total, err := h.service.List(c.UserContext(), limit, offset, search)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"books": books,
		"total": total,
	})
}

type createBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	Category    string `json:"category"`
}

func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	input := new(createBookRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	price, err := decimal.NewFromString(input.Price)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid price"})
	}

	bookID, err := h.service.Create(c.UserContext(), &catalogdomain.Book{
		Title:       input.Title,
		Author:      input.Author,
		Description: input.Description,
		Price:       price,
		Category:    input.Category,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"book_id": bookID})
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Category    *string `json:"category"`
}

func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	bookID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	input := new(updateBookRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	update := &catalogdomain.UpdateBookInput{
		Title:       input.Title,
		Author:      input.Author,
		Description: input.Description,
		Category:    input.Category,
	}

	if input.Price != nil {
		price, err := decimal.NewFromString(*input.Price)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid price"})
		}
		update.Price = &price
	}

	if err := h.service.Update(c.UserContext(), bookID, update); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	bookID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}

	if err := h.service.Delete(c.UserContext(), bookID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
