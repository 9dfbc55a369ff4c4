package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-bookstore/internal/stock/domain"
	"github.com/sakashimaa/go-bookstore/internal/stock/repository"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type StockService interface {
	// CheckAvailability is advisory: it reports shortages without locking, so
	// the answer can be stale by the time a decrease runs.
	CheckAvailability(ctx context.Context, items []domain.Adjustment) ([]domain.Shortage, error)
	// Decrease applies the whole batch or none of it. On failure the returned
	// error aggregates one entry per unsatisfiable book.
	Decrease(ctx context.Context, items []domain.Adjustment) error
	// Increase is the restock/compensation path; it creates records for books
	// that have none yet.
	Increase(ctx context.Context, items []domain.Adjustment) error
	SetQuantity(ctx context.Context, bookID, quantity int64) error
	GetRecord(ctx context.Context, bookID int64) (*domain.StockRecord, error)
}

type stockService struct {
	pool   *pgxpool.Pool
	repo   repository.StockRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewStockService(pool *pgxpool.Pool, repo repository.StockRepository, logger *zap.Logger) StockService {
	return &stockService{
		pool:   pool,
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("stock/service"),
	}
}

func validateBatch(items []domain.Adjustment) error {
	if len(items) == 0 {
		return apperr.Validation("adjustment batch is empty")
	}

	for _, item := range items {
		if item.BookID <= 0 {
			return apperr.Validation("book id must be positive")
		}

		if item.Quantity <= 0 {
			return apperr.Newf(apperr.CodeValidation, "quantity for book %d must be positive", item.BookID)
		}
	}

	return nil
}

func (s *stockService) CheckAvailability(ctx context.Context, items []domain.Adjustment) ([]domain.Shortage, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.CheckAvailability")
	defer span.End()

	if err := validateBatch(items); err != nil {
		return nil, err
	}

	merged := domain.MergeAdjustments(items)

	bookIDs := make([]int64, 0, len(merged))
	for _, item := range merged {
		bookIDs = append(bookIDs, item.BookID)
	}

	available, err := s.repo.GetQuantities(ctx, bookIDs)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	missing, shortages := domain.PlanDecrease(available, merged)
	for _, bookID := range missing {
		shortages = append(shortages, domain.Shortage{BookID: bookID, Required: quantityFor(merged, bookID)})
	}

	span.SetAttributes(
		attribute.Int("shortages", len(shortages)),
	)

	return shortages, nil
}

func quantityFor(items []domain.Adjustment, bookID int64) int64 {
	for _, item := range items {
		if item.BookID == bookID {
			return item.Quantity
		}
	}

	return 0
}

func (s *stockService) Decrease(ctx context.Context, items []domain.Adjustment) error {
	ctx, span := s.tracer.Start(ctx, "StockService.Decrease")
	defer span.End()

	if err := validateBatch(items); err != nil {
		return err
	}

	merged := domain.MergeAdjustments(items)

	span.SetAttributes(
		attribute.Int("books", len(merged)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	bookIDs := make([]int64, 0, len(merged))
	for _, item := range merged {
		bookIDs = append(bookIDs, item.BookID)
	}

	available, err := s.repo.GetForUpdate(ctx, tx, bookIDs)
	if err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	missing, shortages := domain.PlanDecrease(available, merged)
	if len(missing) > 0 || len(shortages) > 0 {
		var batchErr error
		for _, bookID := range missing {
			batchErr = multierr.Append(batchErr,
				apperr.Newf(apperr.CodeNotFound, "no stock record for book %d", bookID))
		}
		for _, shortage := range shortages {
			batchErr = multierr.Append(batchErr,
				apperr.Newf(apperr.CodeConflict, "insufficient stock for book %d: required %d, available %d",
					shortage.BookID, shortage.Required, shortage.Available))
		}

		mylogger.Warn(
			ctx,
			s.logger,
			"Stock decrease rejected",
			zap.Int("missing", len(missing)),
			zap.Int("shortages", len(shortages)),
		)

		return batchErr
	}

	for _, item := range merged {
		if err := s.repo.ApplyDelta(ctx, tx, item.BookID, -item.Quantity); err != nil {
			span.RecordError(err)
			return apperr.Unexpected(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *stockService) Increase(ctx context.Context, items []domain.Adjustment) error {
	ctx, span := s.tracer.Start(ctx, "StockService.Increase")
	defer span.End()

	if err := validateBatch(items); err != nil {
		return err
	}

	merged := domain.MergeAdjustments(items)

	span.SetAttributes(
		attribute.Int("books", len(merged)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	// The additive upsert takes row locks as it goes; merged is sorted by
	// book id, so the lock order matches Decrease and cannot deadlock. Books
	// without a record get one, so a restock never has a missing target.
	for _, item := range merged {
		if err := s.repo.AddQuantity(ctx, tx, item.BookID, item.Quantity); err != nil {
			span.RecordError(err)
			return apperr.Unexpected(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *stockService) SetQuantity(ctx context.Context, bookID, quantity int64) error {
	ctx, span := s.tracer.Start(ctx, "StockService.SetQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
		attribute.Int64("quantity", quantity),
	)

	if bookID <= 0 {
		return apperr.Validation("book id must be positive")
	}

	if quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.repo.SetQuantity(ctx, tx, bookID, quantity); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *stockService) GetRecord(ctx context.Context, bookID int64) (*domain.StockRecord, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.GetRecord")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
	)

	record, err := s.repo.GetRecord(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrStockRecordNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "no stock record for book %d", bookID)
		}

		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	return record, nil
}
