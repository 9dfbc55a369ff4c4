package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-bookstore/internal/order/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// GetForUpdate locks the order row so status transitions and line edits
	// serialize per order.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID, limit, offset int64) ([]domain.Order, error)
	// UpdateStatus flips the status only if the row still holds `from`;
	// returns ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to domain.Status) error
	AddLine(ctx context.Context, tx pgx.Tx, orderID int64, line domain.OrderLine) error
	UpdateTotal(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	SetPaymentIntentID(ctx context.Context, orderID int64, intentID string) error
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
}

type orderRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{
		pool:   pool,
		tracer: otel.Tracer("order/repository"),
	}
}

func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", order.OwnerID),
		attribute.Int("lines", len(order.Lines)),
	)

	query := `INSERT INTO orders (owner_id, shipping_address, status, total, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  RETURNING id`

	var orderID int64
	if err := tx.QueryRow(ctx, query, order.OwnerID, order.ShippingAddress, order.Status, order.Total).Scan(&orderID); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `INSERT INTO order_lines (order_id, book_id, title, unit_price, quantity)
				  VALUES ($1, $2, $3, $4, $5)`

	for _, line := range order.Lines {
		if _, err := tx.Exec(ctx, lineQuery, orderID, line.BookID, line.Title, line.UnitPrice, line.Quantity); err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return orderID, nil
}

const orderColumns = `id, owner_id, shipping_address, status, total, payment_intent_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.OwnerID,
		&order.ShippingAddress,
		&order.Status,
		&order.Total,
		&order.PaymentIntentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, order *domain.Order) error {
	query := `SELECT book_id, title, unit_price, quantity
			  FROM order_lines
			  WHERE order_id = $1
			  ORDER BY book_id`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to read order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.BookID, &line.Title, &line.UnitPrice, &line.Quantity); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}

		order.Lines = append(order.Lines, line)
	}

	return rows.Err()
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
	)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	if err := r.loadLines(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
	)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if err := r.loadLines(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByOwner(ctx context.Context, ownerID, limit, offset int64) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByOwner")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
	)

	query := `SELECT ` + orderColumns + `
			  FROM orders
			  WHERE owner_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to domain.Status) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	query := `UPDATE orders
			  SET status = $3, updated_at = NOW()
			  WHERE id = $1 AND status = $2`

	tag, err := tx.Exec(ctx, query, id, from, to)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

func (r *orderRepository) AddLine(ctx context.Context, tx pgx.Tx, orderID int64, line domain.OrderLine) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.AddLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("book_id", line.BookID),
	)

	query := `INSERT INTO order_lines (order_id, book_id, title, unit_price, quantity)
			  VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, query, orderID, line.BookID, line.Title, line.UnitPrice, line.Quantity); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert order line: %w", err)
	}

	return nil
}

func (r *orderRepository) UpdateTotal(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateTotal")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
	)

	query := `UPDATE orders SET total = $2, updated_at = NOW() WHERE id = $1`

	if _, err := tx.Exec(ctx, query, order.ID, order.Total); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order total: %w", err)
	}

	return nil
}

func (r *orderRepository) SetPaymentIntentID(ctx context.Context, orderID int64, intentID string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetPaymentIntentID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `UPDATE orders SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, orderID, intentID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set payment intent: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByPaymentIntentID")
	defer span.End()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, intentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	if err := r.loadLines(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}
