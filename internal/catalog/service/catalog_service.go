package service

import (
	"context"
	"errors"

	"github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	"github.com/sakashimaa/go-bookstore/internal/catalog/repository"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.uber.org/zap"
)

// CatalogService is the lookup surface the cart and admin handlers consume.
type CatalogService interface {
	Create(ctx context.Context, book *domain.Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context, limit, offset int64, search string) ([]domain.Book, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateBookInput) error
	Delete(ctx context.Context, id int64) error
}

type catalogService struct {
	bookRepo repository.BookRepository
	logger   *zap.Logger
}

func NewCatalogService(bookRepo repository.BookRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		bookRepo: bookRepo,
		logger:   logger,
	}
}

func (s *catalogService) Create(ctx context.Context, book *domain.Book) (int64, error) {
	if book.Title == "" {
		return 0, apperr.Validation("title is required")
	}
	if book.Price.IsNegative() {
		return 0, apperr.Validation("price must not be negative")
	}

	id, err := s.bookRepo.Create(ctx, book)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to create book", zap.Error(err))
		return 0, apperr.Unexpected(err)
	}

	return id, nil
}

func (s *catalogService) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "book %d not found", id)
		}

		mylogger.Error(ctx, s.logger, "Failed to get book", zap.Int64("book_id", id), zap.Error(err))
		return nil, apperr.Unexpected(err)
	}

	return book, nil
}

func (s *catalogService) List(ctx context.Context, limit, offset int64, search string) ([]domain.Book, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	books, total, err := s.bookRepo.List(ctx, limit, offset, search)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to list books", zap.Error(err))
		return nil, 0, apperr.Unexpected(err)
	}

	return books, total, nil
}

func (s *catalogService) Update(ctx context.Context, id int64, input *domain.UpdateBookInput) error {
	if input.Price != nil && input.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}

	err := s.bookRepo.Update(ctx, id, input)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "book %d not found", id)
		}

		mylogger.Error(ctx, s.logger, "Failed to update book", zap.Int64("book_id", id), zap.Error(err))
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *catalogService) Delete(ctx context.Context, id int64) error {
	err := s.bookRepo.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "book %d not found", id)
		}

		mylogger.Error(ctx, s.logger, "Failed to delete book", zap.Int64("book_id", id), zap.Error(err))
		return apperr.Unexpected(err)
	}

	return nil
}
