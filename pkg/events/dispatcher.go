package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Event is anything that can be fanned out to in-process handlers.
type Event interface {
	EventName() string
}

// Handler reacts to one event type. Handlers run after the originating
// transaction has committed, so they must be idempotent and treat failures
// as something to log and retry, never as a reason to undo state.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

type handlerFunc struct {
	name string
	fn   func(ctx context.Context, event Event) error
}

func (h handlerFunc) Name() string { return h.name }

func (h handlerFunc) Handle(ctx context.Context, event Event) error { return h.fn(ctx, event) }

// HandlerFunc wraps a plain function as a named Handler.
func HandlerFunc(name string, fn func(ctx context.Context, event Event) error) Handler {
	return handlerFunc{name: name, fn: fn}
}

// Dispatcher is an explicit registry of event name -> ordered handler list.
// Registration happens once during process wiring; the first Publish freezes
// the registry, so no locking is needed on the read path.
type Dispatcher struct {
	handlers map[string][]Handler
	frozen   atomic.Bool
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger,
		tracer:   otel.Tracer("pkg/events"),
	}
}

// Subscribe registers a handler for the exact event name. It must be called
// before the first Publish.
func (d *Dispatcher) Subscribe(eventName string, h Handler) {
	if d.frozen.Load() {
		panic(fmt.Sprintf("events: subscribe %q after dispatcher was frozen", eventName))
	}

	d.handlers[eventName] = append(d.handlers[eventName], h)
}

// Publish fans the event out to every handler registered for its exact type,
// runs them concurrently and waits for all of them. Per-handler failures are
// collected individually and returned in aggregate; one failing handler never
// stops the others. Because publishing happens post-commit, the caller can
// only log the aggregate, never roll anything back.
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	d.frozen.Store(true)

	ctx, span := d.tracer.Start(ctx, "Dispatcher.Publish")
	defer span.End()

	span.SetAttributes(
		attribute.String("event.name", event.EventName()),
	)

	registered := d.handlers[event.EventName()]
	if len(registered) == 0 {
		mylogger.Debug(
			ctx,
			d.logger,
			"No handlers registered for event",
			zap.String("event", event.EventName()),
		)

		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, h := range registered {
		wg.Add(1)

		go func(h Handler) {
			defer wg.Done()

			if err := h.Handle(ctx, event); err != nil {
				mylogger.Error(
					ctx,
					d.logger,
					"Event handler failed",
					zap.String("event", event.EventName()),
					zap.String("handler", h.Name()),
					zap.Error(err),
				)

				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("handler %s: %w", h.Name(), err))
				mu.Unlock()
			}
		}(h)
	}

	wg.Wait()

	if errs != nil {
		span.RecordError(errs)
	}

	return errs
}
