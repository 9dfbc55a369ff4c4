package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	cartservice "github.com/sakashimaa/go-bookstore/internal/cart/service"
	discountdomain "github.com/sakashimaa/go-bookstore/internal/discount/domain"
	discountservice "github.com/sakashimaa/go-bookstore/internal/discount/service"
	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	orderrepository "github.com/sakashimaa/go-bookstore/internal/order/repository"
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

type CheckoutInput struct {
	OwnerID         int64
	ShippingAddress string
	PaymentMethod   string
	CouponCode      string
}

// TxBeginner is the part of pgxpool.Pool the orchestrator needs; tests
// substitute a fake.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type CheckoutService interface {
	// Checkout turns the owner's cart into a Pending order and returns its
	// id. Stock is reserved before the order exists; if persisting the order
	// fails, the reservation is returned.
	Checkout(ctx context.Context, input CheckoutInput) (int64, error)
}

type checkoutService struct {
	pool       TxBeginner
	carts      cartservice.CartService
	stock      stockservice.StockService
	orders     orderrepository.OrderRepository
	discounts  discountservice.DiscountService
	outbox     worker.OutboxRepository
	dispatcher *events.Dispatcher
	topic      string
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewCheckoutService(
	pool TxBeginner,
	carts cartservice.CartService,
	stock stockservice.StockService,
	orders orderrepository.OrderRepository,
	discounts discountservice.DiscountService,
	outbox worker.OutboxRepository,
	dispatcher *events.Dispatcher,
	topic string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		pool:       pool,
		carts:      carts,
		stock:      stock,
		orders:     orders,
		discounts:  discounts,
		outbox:     outbox,
		dispatcher: dispatcher,
		topic:      topic,
		logger:     logger,
		tracer:     otel.Tracer("checkout/service"),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, input CheckoutInput) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.Checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", input.OwnerID),
	)

	if input.ShippingAddress == "" {
		return 0, apperr.Validation("shipping address must not be empty")
	}

	cart, err := s.carts.Get(ctx, input.OwnerID)
	if err != nil {
		return 0, err
	}

	if cart.IsEmpty() {
		return 0, apperr.Validation("cart is empty")
	}

	// The cart snapshots are the contract with the customer; the catalog is
	// not consulted again.
	lines := make([]orderdomain.OrderLine, 0, len(cart.Items))
	adjustments := make([]stockdomain.Adjustment, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, orderdomain.OrderLine{
			BookID:    item.BookID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
		adjustments = append(adjustments, stockdomain.Adjustment{
			BookID:   item.BookID,
			Quantity: item.Quantity,
		})
	}

	var coupon *discountdomain.Coupon
	if input.CouponCode != "" {
		coupon, err = s.discounts.Validate(ctx, input.CouponCode)
		if err != nil {
			return 0, err
		}
	}

	// Reserve first. A shortage here means nothing has happened yet and the
	// aggregated item errors go straight back to the caller.
	if err := s.stock.Decrease(ctx, adjustments); err != nil {
		return 0, err
	}

	order, err := s.createOrder(ctx, input, lines, coupon)
	if err != nil {
		// The reservation is already committed; hand the units back.
		if restockErr := s.stock.Increase(ctx, adjustments); restockErr != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to release stock reservation after checkout failure",
				zap.Int64("owner_id", input.OwnerID),
				zap.Error(restockErr),
			)
		}

		return 0, err
	}

	// Past this point the checkout has succeeded; cleanup and notification
	// problems are logged, never surfaced.
	if err := s.carts.Clear(ctx, input.OwnerID); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to clear cart after checkout",
			zap.Int64("owner_id", input.OwnerID),
			zap.Error(err),
		)
	}

	if err := s.dispatcher.Publish(ctx, orderdomain.OrderCreated{
		OrderID: order.ID,
		OwnerID: order.OwnerID,
		Total:   order.Total,
		Lines:   order.Lines,
	}); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Order created handlers reported failures",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Checkout completed",
		zap.Int64("order_id", order.ID),
		zap.Int64("owner_id", input.OwnerID),
		zap.String("total", order.Total.String()),
	)

	return order.ID, nil
}

func (s *checkoutService) createOrder(
	ctx context.Context,
	input CheckoutInput,
	lines []orderdomain.OrderLine,
	coupon *discountdomain.Coupon,
) (*orderdomain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order := &orderdomain.Order{
		OwnerID:         input.OwnerID,
		ShippingAddress: input.ShippingAddress,
		Status:          orderdomain.StatusPending,
		Lines:           lines,
	}
	order.Total = order.CalculateTotal()

	if coupon != nil {
		if err := s.discounts.Redeem(ctx, tx, coupon.Code); err != nil {
			return nil, err
		}

		order.Total = coupon.Apply(order.Total)
	}

	orderID, err := s.orders.Create(ctx, tx, order)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	payload, err := json.Marshal(orderdomain.OrderCreated{
		OrderID: orderID,
		OwnerID: input.OwnerID,
		Total:   order.Total,
		Lines:   order.Lines,
	})
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := s.outbox.SaveOutboxEvent(ctx, tx, &outboxdomain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     "order.created",
		Payload:       payload,
		Topic:         s.topic,
	}); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}

	order.ID = orderID

	return order, nil
}
