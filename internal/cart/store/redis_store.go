package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-bookstore/internal/cart/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// redisStore keeps one serialized cart blob per owner under cart:<ownerID>.
// Every Save rewrites the whole value and resets the rolling TTL; concurrent
// writers race last-write-wins, which is acceptable for per-user cart state.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("cart/redis_store"),
	}
}

func cartKey(ownerID int64) string {
	return fmt.Sprintf("cart:%d", ownerID)
}

func (s *redisStore) Get(ctx context.Context, ownerID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartStore.Get")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
	)

	val, err := s.client.Get(ctx, cartKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(val), &cart); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	return &cart, nil
}

func (s *redisStore) Save(ctx context.Context, cart *domain.Cart) error {
	ctx, span := s.tracer.Start(ctx, "CartStore.Save")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", cart.OwnerID),
		attribute.Int("items", len(cart.Items)),
	)

	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(cart.OwnerID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, ownerID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartStore.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
	)

	if err := s.client.Del(ctx, cartKey(ownerID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return nil
}
