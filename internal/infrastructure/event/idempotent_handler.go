package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/domain/shared"
)

// IdempotencyMetrics counts first-time, duplicate, and failed deliveries.
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// IdempotencyStats is a point-in-time copy of the counters.
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// Stats snapshots the counters.
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotentHandler wraps an EventHandler so redelivered events are handled
// exactly once. Dedup state lives in an IdempotencyStore keyed by event ID.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption customizes the wrapper.
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default dedup configuration.
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics shares a metrics instance across handlers.
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler wraps handler with duplicate detection.
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler.
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event was seen before.
//
// A failing idempotency store degrades to at-least-once: processing a
// duplicate is preferable to dropping an event. A failing handler keeps its
// dedup key, so retries only resume once the key's TTL expires.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency check failed, handling event regardless",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !isNew:
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("event already handled, skipping",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		h.logger.Error("wrapped handler returned an error",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

// Metrics exposes the counters for this handler.
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Unwrap returns the wrapped handler.
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.handler
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
