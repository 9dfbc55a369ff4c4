package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-bookstore/internal/payment/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gateway creates payment intents at the external provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*domain.Intent, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// httpGateway talks to the provider's REST API behind a circuit breaker, so a
// provider outage fails fast instead of tying up checkout handlers.
type httpGateway struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

func NewHTTPGateway(cfg Config) Gateway {
	return &httpGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "payment-gateway",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		tracer: otel.Tracer("payment/gateway"),
	}
}

type createIntentRequest struct {
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (g *httpGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*domain.Intent, error) {
	ctx, span := g.tracer.Start(ctx, "PaymentGateway.CreateIntent")
	defer span.End()

	span.SetAttributes(
		attribute.String("amount", amount.String()),
		attribute.String("currency", currency),
	)

	body, err := json.Marshal(createIntentRequest{
		Amount:   amount.String(),
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to encode intent request: %w", err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.doCreate(ctx, body)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return result.(*domain.Intent), nil
}

func (g *httpGateway) doCreate(ctx context.Context, body []byte) (*domain.Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	// Retries after a network error must not create a second intent.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, payload)
	}

	var intent domain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}

	return &intent, nil
}
