package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-bookstore/internal/stock/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type StockRepository interface {
	// GetForUpdate locks the rows for the given books in ascending book id
	// order and returns their quantities. Books without a record are simply
	// absent from the result.
	GetForUpdate(ctx context.Context, tx pgx.Tx, bookIDs []int64) (map[int64]int64, error)
	// GetQuantities reads quantities without locking, for availability checks.
	GetQuantities(ctx context.Context, bookIDs []int64) (map[int64]int64, error)
	ApplyDelta(ctx context.Context, tx pgx.Tx, bookID, delta int64) error
	// AddQuantity adds to the record, creating it when the book has none
	// yet. Unlike ApplyDelta it never reports a missing record, so two
	// concurrent restocks of an untracked book both land.
	AddQuantity(ctx context.Context, tx pgx.Tx, bookID, quantity int64) error
	SetQuantity(ctx context.Context, tx pgx.Tx, bookID, quantity int64) error
	GetRecord(ctx context.Context, bookID int64) (*domain.StockRecord, error)
}

type stockRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

func NewStockRepository(pool *pgxpool.Pool) StockRepository {
	return &stockRepository{
		pool:   pool,
		tracer: otel.Tracer("stock/repository"),
	}
}

func (r *stockRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, bookIDs []int64) (map[int64]int64, error) {
	ctx, span := r.tracer.Start(ctx, "StockRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int("books", len(bookIDs)),
	)

	// ORDER BY fixes the order in which row locks are taken, so two batches
	// sharing books always queue instead of deadlocking.
	query := `SELECT book_id, quantity
			  FROM stock_records
			  WHERE book_id = ANY($1)
			  ORDER BY book_id
			  FOR UPDATE`

	rows, err := tx.Query(ctx, query, bookIDs)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock stock records: %w", err)
	}
	defer rows.Close()

	quantities := make(map[int64]int64, len(bookIDs))
	for rows.Next() {
		var bookID, quantity int64
		if err := rows.Scan(&bookID, &quantity); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan stock record: %w", err)
		}

		quantities[bookID] = quantity
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read stock records: %w", err)
	}

	return quantities, nil
}

func (r *stockRepository) GetQuantities(ctx context.Context, bookIDs []int64) (map[int64]int64, error) {
	ctx, span := r.tracer.Start(ctx, "StockRepository.GetQuantities")
	defer span.End()

	span.SetAttributes(
		attribute.Int("books", len(bookIDs)),
	)

	query := `SELECT book_id, quantity
			  FROM stock_records
			  WHERE book_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, bookIDs)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read stock records: %w", err)
	}
	defer rows.Close()

	quantities := make(map[int64]int64, len(bookIDs))
	for rows.Next() {
		var bookID, quantity int64
		if err := rows.Scan(&bookID, &quantity); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan stock record: %w", err)
		}

		quantities[bookID] = quantity
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read stock records: %w", err)
	}

	return quantities, nil
}

func (r *stockRepository) ApplyDelta(ctx context.Context, tx pgx.Tx, bookID, delta int64) error {
	ctx, span := r.tracer.Start(ctx, "StockRepository.ApplyDelta")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
		attribute.Int64("delta", delta),
	)

	query := `UPDATE stock_records
			  SET quantity = quantity + $2, updated_at = NOW()
			  WHERE book_id = $1`

	tag, err := tx.Exec(ctx, query, bookID, delta)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStockRecordNotFound
	}

	return nil
}

func (r *stockRepository) AddQuantity(ctx context.Context, tx pgx.Tx, bookID, quantity int64) error {
	ctx, span := r.tracer.Start(ctx, "StockRepository.AddQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
		attribute.Int64("quantity", quantity),
	)

	query := `INSERT INTO stock_records (book_id, quantity, updated_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (book_id)
			  DO UPDATE SET quantity = stock_records.quantity + EXCLUDED.quantity, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, bookID, quantity); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to add stock quantity: %w", err)
	}

	return nil
}

func (r *stockRepository) SetQuantity(ctx context.Context, tx pgx.Tx, bookID, quantity int64) error {
	ctx, span := r.tracer.Start(ctx, "StockRepository.SetQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
		attribute.Int64("quantity", quantity),
	)

	query := `INSERT INTO stock_records (book_id, quantity, updated_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (book_id)
			  DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, bookID, quantity); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set stock quantity: %w", err)
	}

	return nil
}

func (r *stockRepository) GetRecord(ctx context.Context, bookID int64) (*domain.StockRecord, error) {
	ctx, span := r.tracer.Start(ctx, "StockRepository.GetRecord")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("book_id", bookID),
	)

	query := `SELECT book_id, quantity, updated_at
			  FROM stock_records
			  WHERE book_id = $1`

	var record domain.StockRecord
	err := r.pool.QueryRow(ctx, query, bookID).Scan(&record.BookID, &record.Quantity, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStockRecordNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to read stock record: %w", err)
	}

	return &record, nil
}
