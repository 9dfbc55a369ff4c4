package service

import (
	"context"
	"fmt"

	"github.com/sakashimaa/go-bookstore/internal/notification/email"
	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	userrepository "github.com/sakashimaa/go-bookstore/internal/user/repository"
	"github.com/sakashimaa/go-bookstore/pkg/events"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// NotificationService sends customer-facing emails off the order lifecycle
// events. Everything here is best-effort: the order itself is never held
// hostage by a mail server.
type NotificationService interface {
	OrderCreatedHandler() events.Handler
	OrderCancelledHandler() events.Handler
}

type notificationService struct {
	sender email.Sender
	users  userrepository.UserRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewNotificationService(sender email.Sender, users userrepository.UserRepository, logger *zap.Logger) NotificationService {
	return &notificationService{
		sender: sender,
		users:  users,
		logger: logger,
		tracer: otel.Tracer("notification/service"),
	}
}

func (s *notificationService) OrderCreatedHandler() events.Handler {
	return events.HandlerFunc("order-confirmation-mailer", s.handleOrderCreated)
}

func (s *notificationService) handleOrderCreated(ctx context.Context, event events.Event) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCreated")
	defer span.End()

	created, ok := event.(orderdomain.OrderCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	span.SetAttributes(
		attribute.Int64("order_id", created.OrderID),
		attribute.Int64("owner_id", created.OwnerID),
	)

	user, err := s.users.GetByID(ctx, created.OwnerID)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(
			ctx,
			s.logger,
			"Cannot resolve email for order confirmation",
			zap.Int64("owner_id", created.OwnerID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to resolve user %d: %w", created.OwnerID, err)
	}

	return s.sender.SendOrderConfirmation(ctx, user.Email, created.OrderID, created.Total)
}

func (s *notificationService) OrderCancelledHandler() events.Handler {
	return events.HandlerFunc("order-cancelled-mailer", s.handleOrderCancelled)
}

func (s *notificationService) handleOrderCancelled(ctx context.Context, event events.Event) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCancelled")
	defer span.End()

	cancelled, ok := event.(orderdomain.OrderCancelled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	span.SetAttributes(
		attribute.Int64("order_id", cancelled.OrderID),
	)

	user, err := s.users.GetByID(ctx, cancelled.OwnerID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to resolve user %d: %w", cancelled.OwnerID, err)
	}

	return s.sender.SendOrderCancelled(ctx, user.Email, cancelled.OrderID)
}
