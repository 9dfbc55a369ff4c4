package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-bookstore/internal/catalog/domain"
)

// cachedCatalogService is a read-through cache decorator over CatalogService.
// Writes invalidate; lookups hit redis first.
type cachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedCatalogService(next CatalogService, redisClient *redis.Client) CatalogService {
	return &cachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

func (s *cachedCatalogService) Create(ctx context.Context, book *domain.Book) (int64, error) {
	return s.next.Create(ctx, book)
}

func (s *cachedCatalogService) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	key := bookKey(id)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var book domain.Book
		if err := json.Unmarshal([]byte(val), &book); err == nil {
			return &book, nil
		}
	}

	book, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(book); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return book, nil
}

func (s *cachedCatalogService) List(ctx context.Context, limit, offset int64, search string) ([]domain.Book, int64, error) {
	return s.next.List(ctx, limit, offset, search)
}

func (s *cachedCatalogService) Update(ctx context.Context, id int64, input *domain.UpdateBookInput) error {
	if err := s.next.Update(ctx, id, input); err != nil {
		return err
	}

	s.redisClient.Del(ctx, bookKey(id))
	return nil
}

func (s *cachedCatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.redisClient.Del(ctx, bookKey(id))
	return nil
}
