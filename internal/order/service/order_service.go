package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	"github.com/sakashimaa/go-bookstore/internal/order/domain"
	"github.com/sakashimaa/go-bookstore/internal/order/repository"
	stockdomain "github.com/sakashimaa/go-bookstore/internal/stock/domain"
	stockservice "github.com/sakashimaa/go-bookstore/internal/stock/service"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/events"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	outboxdomain "github.com/sakashimaa/go-bookstore/pkg/outbox/domain"
	"github.com/sakashimaa/go-bookstore/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderService interface {
	GetForOwner(ctx context.Context, ownerID, orderID int64) (*domain.Order, error)
	ListForOwner(ctx context.Context, ownerID, limit, offset int64) ([]domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
	AttachPaymentIntent(ctx context.Context, orderID int64, intentID string) error

	// MarkPaymentSucceeded moves Pending to Processing. Payment providers
	// redeliver webhooks, so a repeat call against a Processing order is a
	// successful no-op.
	MarkPaymentSucceeded(ctx context.Context, orderID int64) error
	// MarkPaymentFailed moves Pending to Failed and returns the reserved
	// stock; Failed is terminal, so this is the last chance to release it.
	MarkPaymentFailed(ctx context.Context, orderID int64) error
	Ship(ctx context.Context, orderID int64) error
	Deliver(ctx context.Context, orderID int64) error
	// Cancel flips the order to Cancelled and returns the reserved stock.
	Cancel(ctx context.Context, ownerID, orderID int64) error

	AddLine(ctx context.Context, ownerID, orderID, bookID, quantity int64) (*domain.Order, error)
}

type orderService struct {
	pool       *pgxpool.Pool
	repo       repository.OrderRepository
	outbox     worker.OutboxRepository
	stock      stockservice.StockService
	catalog    catalogservice.CatalogService
	dispatcher *events.Dispatcher
	topic      string
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	repo repository.OrderRepository,
	outbox worker.OutboxRepository,
	stock stockservice.StockService,
	catalog catalogservice.CatalogService,
	dispatcher *events.Dispatcher,
	topic string,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		pool:       pool,
		repo:       repo,
		outbox:     outbox,
		stock:      stock,
		catalog:    catalog,
		dispatcher: dispatcher,
		topic:      topic,
		logger:     logger,
		tracer:     otel.Tracer("order/service"),
	}
}

func (s *orderService) GetForOwner(ctx context.Context, ownerID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetForOwner")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("owner_id", ownerID),
	)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	if order.OwnerID != ownerID {
		return nil, apperr.Forbidden("order belongs to another user")
	}

	return order, nil
}

func (s *orderService) ListForOwner(ctx context.Context, ownerID, limit, offset int64) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListForOwner")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
	)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	return orders, nil
}

func (s *orderService) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetByPaymentIntentID")
	defer span.End()

	order, err := s.repo.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "no order for payment intent %s", intentID)
		}

		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	return order, nil
}

func (s *orderService) AttachPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.AttachPaymentIntent")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	if err := s.repo.SetPaymentIntentID(ctx, orderID, intentID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *orderService) MarkPaymentSucceeded(ctx context.Context, orderID int64) error {
	_, err := s.transition(ctx, orderID, domain.StatusProcessing)
	return err
}

func (s *orderService) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	order, err := s.transition(ctx, orderID, domain.StatusFailed)
	if err != nil || order == nil {
		return err
	}

	// Checkout reserved these units before the order existed; a declined
	// payment is the end of this order, so hand them back.
	s.restock(ctx, order)

	return nil
}

func (s *orderService) Ship(ctx context.Context, orderID int64) error {
	_, err := s.transition(ctx, orderID, domain.StatusShipped)
	return err
}

func (s *orderService) Deliver(ctx context.Context, orderID int64) error {
	_, err := s.transition(ctx, orderID, domain.StatusDelivered)
	return err
}

// transition moves an order to `to` under a row lock and returns the order as
// it was before the change. Arriving at a state the order already holds is a
// no-op success only for Processing (webhook redelivery), reported as a nil
// order; every other repeat or illegal edge is a Conflict.
func (s *orderService) transition(ctx context.Context, orderID int64, to domain.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Transition")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("to", string(to)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	if order.Status == to {
		if to == domain.StatusProcessing {
			return nil, nil
		}

		return nil, apperr.Newf(apperr.CodeConflict, "order %d is already %s", orderID, to)
	}

	if !order.Status.CanTransitionTo(to) {
		return nil, apperr.Newf(apperr.CodeConflict, "invalid transition from %s to %s", order.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, tx, orderID, order.Status, to); err != nil {
		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)),
	)

	return order, nil
}

// restock hands an order's reserved units back to the ledger. The status
// change has already committed, so a failure here is an operational problem
// to alert on, not the caller's error.
func (s *orderService) restock(ctx context.Context, order *domain.Order) {
	if len(order.Lines) == 0 {
		return
	}

	adjustments := make([]stockdomain.Adjustment, 0, len(order.Lines))
	for _, line := range order.Lines {
		adjustments = append(adjustments, stockdomain.Adjustment{BookID: line.BookID, Quantity: line.Quantity})
	}

	if err := s.stock.Increase(ctx, adjustments); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to restock order lines",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *orderService) Cancel(ctx context.Context, ownerID, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("owner_id", ownerID),
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

	order, err := s.repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	if order.OwnerID != ownerID {
		return apperr.Forbidden("order belongs to another user")
	}

	if !order.Status.CanTransitionTo(domain.StatusCancelled) {
		return apperr.Newf(apperr.CodeConflict, "order %d cannot be cancelled from %s", orderID, order.Status)
	}

	if err := s.repo.UpdateStatus(ctx, tx, orderID, order.Status, domain.StatusCancelled); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	payload, err := json.Marshal(domain.OrderCancelled{OrderID: orderID, OwnerID: ownerID})
	if err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	if err := s.outbox.SaveOutboxEvent(ctx, tx, &outboxdomain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     "order.cancelled",
		Payload:       payload,
		Topic:         s.topic,
	}); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	s.restock(ctx, order)

	if err := s.dispatcher.Publish(ctx, domain.OrderCancelled{OrderID: orderID, OwnerID: ownerID}); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Order cancelled handlers reported failures",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *orderService) AddLine(ctx context.Context, ownerID, orderID, bookID, quantity int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AddLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("book_id", bookID),
		attribute.Int64("quantity", quantity),
	)

	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	book, err := s.catalog.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	// Reserve before touching the order, same as checkout does for the
	// original lines.
	adjustment := []stockdomain.Adjustment{{BookID: bookID, Quantity: quantity}}
	if err := s.stock.Decrease(ctx, adjustment); err != nil {
		return nil, err
	}

	order, err := s.addLineTx(ctx, ownerID, orderID, domain.OrderLine{
		BookID:    book.ID,
		Title:     book.Title,
		UnitPrice: book.Price,
		Quantity:  quantity,
	})
	if err != nil {
		if restockErr := s.stock.Increase(ctx, adjustment); restockErr != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to restock after rejected line",
				zap.Int64("order_id", orderID),
				zap.Error(restockErr),
			)
		}

		return nil, err
	}

	return order, nil
}

func (s *orderService) addLineTx(ctx context.Context, ownerID, orderID int64, line domain.OrderLine) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		return nil, apperr.Unexpected(err)
	}

	if order.OwnerID != ownerID {
		return nil, apperr.Forbidden("order belongs to another user")
	}

	if err := order.AddLine(line); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateLine):
			return nil, apperr.Newf(apperr.CodeConflict, "order %d already contains book %d", orderID, line.BookID)
		case errors.Is(err, domain.ErrOrderNotEditable):
			return nil, apperr.Newf(apperr.CodeConflict, "order %d is %s and can no longer be modified", orderID, order.Status)
		default:
			return nil, apperr.Unexpected(err)
		}
	}

	if err := s.repo.AddLine(ctx, tx, orderID, line); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := s.repo.UpdateTotal(ctx, tx, order); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}

	return order, nil
}
