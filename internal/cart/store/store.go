package store

import (
	"context"

	"github.com/sakashimaa/go-bookstore/internal/cart/domain"
)

// Store holds each user's pending cart outside the durable database.
// Get returns (nil, nil) when no cart exists or it has expired.
type Store interface {
	Get(ctx context.Context, ownerID int64) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, ownerID int64) error
}
