package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sakashimaa/go-bookstore/internal/config"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Sender interface {
	SendOrderConfirmation(ctx context.Context, to string, orderID int64, total decimal.Decimal) error
	SendOrderCancelled(ctx context.Context, to string, orderID int64) error
}

type smtpSender struct {
	from     string
	password string
	host     string
	port     string
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewSMTPSender(cfg config.SMTP, logger *zap.Logger) Sender {
	return &smtpSender{
		from:     cfg.User,
		password: cfg.Password,
		host:     cfg.Host,
		port:     cfg.Port,
		logger:   logger,
		tracer:   otel.Tracer("notification/email"),
	}
}

func (s *smtpSender) send(ctx context.Context, to, subject, body string) error {
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte("Subject: " + subject + "\n" + mime + body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

func (s *smtpSender) SendOrderConfirmation(ctx context.Context, to string, orderID int64, total decimal.Decimal) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderConfirmation")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.Int64("order_id", orderID),
	)

	body := fmt.Sprintf(`
		<h1>Thank you for your order! 📚</h1>
		<p>Your order #%d has been placed. Total: %s.</p>
		<p>We will let you know as soon as it ships.</p>
	`, orderID, total.StringFixed(2))

	mylogger.Info(
		ctx,
		s.logger,
		"Sending order confirmation email",
		zap.String("to", to),
		zap.Int64("order_id", orderID),
	)

	if err := s.send(ctx, to, fmt.Sprintf("Your order #%d is confirmed.", orderID), body); err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			s.logger,
			"Error sending order confirmation email",
			zap.String("to", to),
			zap.Error(err),
		)

		return err
	}

	mylogger.Info(ctx, s.logger, "Order confirmation email sent successfully")
	return nil
}

func (s *smtpSender) SendOrderCancelled(ctx context.Context, to string, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderCancelled")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.Int64("order_id", orderID),
	)

	body := fmt.Sprintf(`
		<h1>Your order has been cancelled</h1>
		<p>Order #%d was cancelled. If this wasn't you, contact our support.</p>
	`, orderID)

	mylogger.Info(
		ctx,
		s.logger,
		"Sending order cancelled email",
		zap.String("to", to),
		zap.Int64("order_id", orderID),
	)

	if err := s.send(ctx, to, fmt.Sprintf("Your order #%d was cancelled.", orderID), body); err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			s.logger,
			"Error sending order cancelled email",
			zap.String("to", to),
			zap.Error(err),
		)

		return err
	}

	return nil
}
