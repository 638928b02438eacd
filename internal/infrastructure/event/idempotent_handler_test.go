package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/cache"
)

// countingHandler records how often it was invoked and can be set to fail.
type countingHandler struct {
	calls atomic.Int64
	err   error
	types []string
}

func (h *countingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.calls.Add(1)
	return h.err
}

func (h *countingHandler) EventTypes() []string {
	if h.types == nil {
		return []string{"invoicing.invoice.created"}
	}
	return h.types
}

// failingStore simulates an unreachable idempotency store.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return false, errors.New("store unavailable")
}

func (s *failingStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return false, errors.New("store unavailable")
}

func (s *failingStore) Close() error { return nil }

type dedupTestEvent struct {
	shared.BaseDomainEvent
}

func newDedupTestEvent() *dedupTestEvent {
	return &dedupTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			"invoicing.invoice.created",
			"Invoice",
			uuid.New(),
			time.Now(),
		),
	}
}

func newDedupHandler(t *testing.T, inner shared.EventHandler, opts ...IdempotentHandlerOption) *IdempotentHandler {
	t.Helper()
	store := cache.NewInMemoryProcessedEventStore()
	t.Cleanup(func() { store.Close() })
	return NewIdempotentHandler(inner, store, zap.NewNop(), opts...)
}

func TestIdempotentHandlerProcessesNewEvent(t *testing.T) {
	inner := &countingHandler{}
	handler := newDedupHandler(t, inner)

	require.NoError(t, handler.Handle(context.Background(), newDedupTestEvent()))

	assert.Equal(t, int64(1), inner.calls.Load())
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(0), stats.EventsDuplicate)
}

func TestIdempotentHandlerSkipsRedelivery(t *testing.T) {
	inner := &countingHandler{}
	handler := newDedupHandler(t, inner)
	event := newDedupTestEvent()

	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	assert.Equal(t, int64(1), inner.calls.Load())
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(2), stats.EventsDuplicate)
}

func TestIdempotentHandlerDistinctEventsAllProcessed(t *testing.T) {
	inner := &countingHandler{}
	handler := newDedupHandler(t, inner)

	require.NoError(t, handler.Handle(context.Background(), newDedupTestEvent()))
	require.NoError(t, handler.Handle(context.Background(), newDedupTestEvent()))

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestIdempotentHandlerPropagatesHandlerError(t *testing.T) {
	innerErr := errors.New("activity log write failed")
	inner := &countingHandler{err: innerErr}
	handler := newDedupHandler(t, inner)

	err := handler.Handle(context.Background(), newDedupTestEvent())
	require.ErrorIs(t, err, innerErr)

	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(0), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsFailed)
}

func TestIdempotentHandlerProcessesWhenStoreFails(t *testing.T) {
	inner := &countingHandler{}
	store := &failingStore{}
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	// A broken store must not drop events.
	require.NoError(t, handler.Handle(context.Background(), newDedupTestEvent()))
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, store.calls)
}

func TestIdempotentHandlerDisabled(t *testing.T) {
	inner := &countingHandler{}
	cfg := shared.DefaultIdempotencyConfig()
	cfg.Enabled = false
	handler := newDedupHandler(t, inner, WithIdempotencyConfig(cfg))
	event := newDedupTestEvent()

	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	assert.Equal(t, int64(3), inner.calls.Load())
	assert.Equal(t, int64(0), handler.Metrics().Stats().EventsProcessed)
}

func TestIdempotentHandlerEventTypes(t *testing.T) {
	inner := &countingHandler{types: []string{"invoicing.payment.recorded", "invoicing.invoice.cancelled"}}
	handler := newDedupHandler(t, inner)

	assert.Equal(t, inner.types, handler.EventTypes())
	assert.Equal(t, shared.EventHandler(inner), handler.Unwrap())
}

func TestIdempotentHandlerSharedMetrics(t *testing.T) {
	store := cache.NewInMemoryProcessedEventStore()
	defer store.Close()

	metrics := &IdempotencyMetrics{}
	h1 := NewIdempotentHandler(&countingHandler{}, store, zap.NewNop(), WithIdempotencyMetrics(metrics))
	h2 := NewIdempotentHandler(&countingHandler{}, store, zap.NewNop(), WithIdempotencyMetrics(metrics))

	require.NoError(t, h1.Handle(context.Background(), newDedupTestEvent()))
	require.NoError(t, h2.Handle(context.Background(), newDedupTestEvent()))

	assert.Equal(t, int64(2), metrics.Stats().EventsProcessed)
}

func TestIdempotencyMetricsStats(t *testing.T) {
	metrics := &IdempotencyMetrics{}
	metrics.EventsProcessed.Add(10)
	metrics.EventsDuplicate.Add(5)
	metrics.EventsFailed.Add(2)

	stats := metrics.Stats()
	assert.Equal(t, int64(10), stats.EventsProcessed)
	assert.Equal(t, int64(5), stats.EventsDuplicate)
	assert.Equal(t, int64(2), stats.EventsFailed)
}

func TestIdempotentHandlerConcurrentRedelivery(t *testing.T) {
	inner := &countingHandler{}
	handler := newDedupHandler(t, inner)
	event := newDedupTestEvent()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, handler.Handle(context.Background(), event))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.calls.Load())
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(workers-1), stats.EventsDuplicate)
}
