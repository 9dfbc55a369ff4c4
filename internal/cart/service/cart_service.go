package service

import (
	"context"

	cartdomain "github.com/sakashimaa/go-bookstore/internal/cart/domain"
	"github.com/sakashimaa/go-bookstore/internal/cart/store"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.uber.org/zap"
)

type CartService interface {
	Get(ctx context.Context, ownerID int64) (*cartdomain.Cart, error)
	AddItem(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error)
	SetQuantity(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error)
	RemoveItem(ctx context.Context, ownerID, bookID int64) (*cartdomain.Cart, error)
	Clear(ctx context.Context, ownerID int64) error
}

type cartService struct {
	cartStore store.Store
	catalog   catalogservice.CatalogService
	logger    *zap.Logger
}

func NewCartService(cartStore store.Store, catalog catalogservice.CatalogService, logger *zap.Logger) CartService {
	return &cartService{
		cartStore: cartStore,
		catalog:   catalog,
		logger:    logger,
	}
}

// Get degrades to an empty cart when the store is unreachable. Losing a cart
// read is preferable to failing the purchase funnel over a non-critical
// dependency.
func (s *cartService) Get(ctx context.Context, ownerID int64) (*cartdomain.Cart, error) {
	cart, err := s.cartStore.Get(ctx, ownerID)
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Cart store unavailable, serving empty cart",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)

		return cartdomain.NewCart(ownerID), nil
	}

	if cart == nil {
		return cartdomain.NewCart(ownerID), nil
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	// Snapshot title and price at add time; checkout will not re-read the
	// catalog.
	book, err := s.catalog.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	cart.AddItem(cartdomain.CartItem{
		BookID:    book.ID,
		Title:     book.Title,
		UnitPrice: book.Price,
		Quantity:  quantity,
	})

	if err := s.cartStore.Save(ctx, cart); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to save cart",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)

		return nil, apperr.Unexpected(err)
	}

	return cart, nil
}

func (s *cartService) SetQuantity(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error) {
	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if !cart.SetQuantity(bookID, quantity) {
		return nil, apperr.Newf(apperr.CodeNotFound, "book %d is not in the cart", bookID)
	}

	if err := s.cartStore.Save(ctx, cart); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to save cart",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)

		return nil, apperr.Unexpected(err)
	}

	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, ownerID, bookID int64) (*cartdomain.Cart, error) {
	return s.SetQuantity(ctx, ownerID, bookID, 0)
}

func (s *cartService) Clear(ctx context.Context, ownerID int64) error {
	if err := s.cartStore.Delete(ctx, ownerID); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to clear cart",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)

		return apperr.Unexpected(err)
	}

	return nil
}
