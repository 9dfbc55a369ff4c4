package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestPublish_FansOutToAllHandlers(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var mu sync.Mutex
	var seen []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Subscribe("OrderCreated", HandlerFunc(name, func(ctx context.Context, event Event) error {
			mu.Lock()
			seen = append(seen, name)
			mu.Unlock()
			return nil
		}))
	}

	err := d.Publish(context.Background(), testEvent{name: "OrderCreated"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"first", "second", "third"}, seen)
}

func TestPublish_OnlyExactEventType(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	called := false
	d.Subscribe("OrderCancelled", HandlerFunc("h", func(ctx context.Context, event Event) error {
		called = true
		return nil
	}))

	err := d.Publish(context.Background(), testEvent{name: "OrderCreated"})
	require.NoError(t, err)
	require.False(t, called)
}

func TestPublish_AggregatesFailuresWithoutStoppingOthers(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	failing := errors.New("smtp down")
	survived := false

	d.Subscribe("OrderCreated", HandlerFunc("email", func(ctx context.Context, event Event) error {
		return failing
	}))
	d.Subscribe("OrderCreated", HandlerFunc("audit", func(ctx context.Context, event Event) error {
		survived = true
		return nil
	}))
	d.Subscribe("OrderCreated", HandlerFunc("metrics", func(ctx context.Context, event Event) error {
		return errors.New("sink unavailable")
	}))

	err := d.Publish(context.Background(), testEvent{name: "OrderCreated"})
	require.Error(t, err)
	require.True(t, survived)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorIs(t, err, failing)
}

func TestPublish_HandlersRunConcurrently(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	gate := make(chan struct{})

	// Two handlers that each wait for the other; only concurrent execution
	// lets both finish.
	d.Subscribe("ping", HandlerFunc("a", func(ctx context.Context, event Event) error {
		gate <- struct{}{}
		return nil
	}))
	d.Subscribe("ping", HandlerFunc("b", func(ctx context.Context, event Event) error {
		<-gate
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- d.Publish(context.Background(), testEvent{name: "ping"}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run concurrently")
	}
}

func TestSubscribe_AfterPublishPanics(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	_ = d.Publish(context.Background(), testEvent{name: "noop"})

	require.Panics(t, func() {
		d.Subscribe("late", HandlerFunc("late", func(ctx context.Context, event Event) error {
			return nil
		}))
	})
}
