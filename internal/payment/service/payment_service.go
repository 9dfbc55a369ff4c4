package service

import (
	"context"
	"fmt"
	"strconv"

	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	orderservice "github.com/sakashimaa/go-bookstore/internal/order/service"
	"github.com/sakashimaa/go-bookstore/internal/payment/gateway"
	"github.com/sakashimaa/go-bookstore/pkg/events"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PaymentService interface {
	// OrderCreatedHandler creates a payment intent for each new order and
	// stores its id, ready for the provider's webhook to resolve later.
	OrderCreatedHandler() events.Handler
	// HandleSucceeded is the webhook path for a captured payment; it moves
	// the order to Processing and tolerates redelivery.
	HandleSucceeded(ctx context.Context, intentID string) error
	HandleFailed(ctx context.Context, intentID string) error
}

type paymentService struct {
	gateway  gateway.Gateway
	orders   orderservice.OrderService
	currency string
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewPaymentService(gw gateway.Gateway, orders orderservice.OrderService, currency string, logger *zap.Logger) PaymentService {
	return &paymentService{
		gateway:  gw,
		orders:   orders,
		currency: currency,
		logger:   logger,
		tracer:   otel.Tracer("payment/service"),
	}
}

func (s *paymentService) OrderCreatedHandler() events.Handler {
	return events.HandlerFunc("payment-intent-creator", s.handleOrderCreated)
}

func (s *paymentService) handleOrderCreated(ctx context.Context, event events.Event) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleOrderCreated")
	defer span.End()

	created, ok := event.(orderdomain.OrderCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	span.SetAttributes(
		attribute.Int64("order_id", created.OrderID),
	)

	intent, err := s.gateway.CreateIntent(ctx, created.Total, s.currency, map[string]string{
		"order_id": strconv.FormatInt(created.OrderID, 10),
		"owner_id": strconv.FormatInt(created.OwnerID, 10),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create payment intent for order %d: %w", created.OrderID, err)
	}

	if err := s.orders.AttachPaymentIntent(ctx, created.OrderID, intent.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to attach payment intent to order %d: %w", created.OrderID, err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Payment intent created",
		zap.Int64("order_id", created.OrderID),
		zap.String("intent_id", intent.ID),
	)

	return nil
}

func (s *paymentService) HandleSucceeded(ctx context.Context, intentID string) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleSucceeded")
	defer span.End()

	order, err := s.orders.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
	)

	return s.orders.MarkPaymentSucceeded(ctx, order.ID)
}

func (s *paymentService) HandleFailed(ctx context.Context, intentID string) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleFailed")
	defer span.End()

	order, err := s.orders.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
	)

	return s.orders.MarkPaymentFailed(ctx, order.ID)
}
