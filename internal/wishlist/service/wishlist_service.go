package service

import (
	"context"

	catalogdomain "github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	"github.com/sakashimaa/go-bookstore/internal/wishlist/store"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.uber.org/zap"
)

type WishlistService interface {
	Add(ctx context.Context, ownerID, bookID int64) error
	Remove(ctx context.Context, ownerID, bookID int64) error
	// List resolves the saved ids through the catalog; books deleted since
	// they were wished for are silently dropped.
	List(ctx context.Context, ownerID int64) ([]catalogdomain.Book, error)
}

type wishlistService struct {
	store   store.Store
	catalog catalogservice.CatalogService
	logger  *zap.Logger
}

func NewWishlistService(wishlistStore store.Store, catalog catalogservice.CatalogService, logger *zap.Logger) WishlistService {
	return &wishlistService{
		store:   wishlistStore,
		catalog: catalog,
		logger:  logger,
	}
}

func (s *wishlistService) Add(ctx context.Context, ownerID, bookID int64) error {
	// Only existing books can be wished for.
	if _, err := s.catalog.GetByID(ctx, bookID); err != nil {
		return err
	}

	if err := s.store.Add(ctx, ownerID, bookID); err != nil {
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *wishlistService) Remove(ctx context.Context, ownerID, bookID int64) error {
	if err := s.store.Remove(ctx, ownerID, bookID); err != nil {
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *wishlistService) List(ctx context.Context, ownerID int64) ([]catalogdomain.Book, error) {
	bookIDs, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	books := make([]catalogdomain.Book, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		book, err := s.catalog.GetByID(ctx, bookID)
		if err != nil {
			if apperr.IsCode(err, apperr.CodeNotFound) {
				mylogger.Warn(
					ctx,
					s.logger,
					"Dropping wishlist entry for missing book",
					zap.Int64("owner_id", ownerID),
					zap.Int64("book_id", bookID),
				)
				continue
			}

			return nil, err
		}

		books = append(books, *book)
	}

	return books, nil
}
