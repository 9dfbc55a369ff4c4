package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store keeps one redis set of book ids per owner. Unlike carts, wishlists
// have no TTL.
type Store interface {
	Add(ctx context.Context, ownerID, bookID int64) error
	Remove(ctx context.Context, ownerID, bookID int64) error
	List(ctx context.Context, ownerID int64) ([]int64, error)
}

type redisStore struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{
		client: client,
		tracer: otel.Tracer("wishlist/redis_store"),
	}
}

func wishlistKey(ownerID int64) string {
	return fmt.Sprintf("wishlist:%d", ownerID)
}

func (s *redisStore) Add(ctx context.Context, ownerID, bookID int64) error {
	ctx, span := s.tracer.Start(ctx, "WishlistStore.Add")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int64("book_id", bookID),
	)

	if err := s.client.SAdd(ctx, wishlistKey(ownerID), bookID).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}

	return nil
}

func (s *redisStore) Remove(ctx context.Context, ownerID, bookID int64) error {
	ctx, span := s.tracer.Start(ctx, "WishlistStore.Remove")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int64("book_id", bookID),
	)

	if err := s.client.SRem(ctx, wishlistKey(ownerID), bookID).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}

	return nil
}

func (s *redisStore) List(ctx context.Context, ownerID int64) ([]int64, error) {
	ctx, span := s.tracer.Start(ctx, "WishlistStore.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
	)

	members, err := s.client.SMembers(ctx, wishlistKey(ownerID)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read wishlist: %w", err)
	}

	bookIDs := make([]int64, 0, len(members))
	for _, member := range members {
		bookID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt wishlist entry %q: %w", member, err)
		}

		bookIDs = append(bookIDs, bookID)
	}

	sort.Slice(bookIDs, func(i, j int) bool { return bookIDs[i] < bookIDs[j] })

	return bookIDs, nil
}
