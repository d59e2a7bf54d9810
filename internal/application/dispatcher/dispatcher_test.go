package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtsops/gts-workflow/internal/domain/event"
)

// TestDispatchOrder tests synchronous dispatch in registration order
func TestDispatchOrder(t *testing.T) {
	d := New()
	var order []string

	d.Subscribe(event.TypeTripArrived, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeTripArrived, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeTripArrived, "TRIP-001", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

// TestDispatchStopsOnError tests that a failing handler surfaces its error
func TestDispatchStopsOnError(t *testing.T) {
	d := New()
	boom := errors.New("boom")
	reached := false

	d.Subscribe(event.TypeTokenRevoked, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.Subscribe(event.TypeTokenRevoked, "after", func(ctx context.Context, evt *event.Event) error {
		reached = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeTokenRevoked, "TRIP-001", nil))
	assert.ErrorIs(t, err, boom)
	assert.False(t, reached)
}

// TestDispatchRecoversPanic tests panic containment
func TestDispatchRecoversPanic(t *testing.T) {
	d := New()
	d.Subscribe(event.TypeTripCompleted, "panicking", func(ctx context.Context, evt *event.Event) error {
		panic("handler bug")
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeTripCompleted, "TRIP-001", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

// TestDispatchAsyncOutlivesCallerContext tests that async handlers keep a
// live context after the emitting request's context is canceled. A push
// handler otherwise fails with context.Canceled on every HTTP-triggered event.
func TestDispatchAsyncOutlivesCallerContext(t *testing.T) {
	d := New()
	var handlerCtxErr atomic.Value

	d.Subscribe(event.TypeTripArrived, "detached", func(ctx context.Context, evt *event.Event) error {
		handlerCtxErr.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.DispatchAsync(ctx, event.New(event.TypeTripArrived, "TRIP-001", nil))
	require.NoError(t, d.Close())

	assert.Equal(t, true, handlerCtxErr.Load())
}

// TestDispatchAsyncWaitsOnClose tests Close drains in-flight handlers
func TestDispatchAsyncWaitsOnClose(t *testing.T) {
	d := New()
	var calls atomic.Int32

	d.Subscribe(event.TypeSessionCompleted, "counter", func(ctx context.Context, evt *event.Event) error {
		calls.Add(1)
		return nil
	})

	for i := 0; i < 10; i++ {
		d.DispatchAsync(context.Background(), event.New(event.TypeSessionCompleted, "TRIP-001", nil))
	}
	require.NoError(t, d.Close())
	assert.Equal(t, int32(10), calls.Load())

	// Closed dispatcher rejects further work.
	assert.Error(t, d.Dispatch(context.Background(), event.New(event.TypeSessionCompleted, "TRIP-001", nil)))
	assert.Error(t, d.Close())
}
