package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/invoicing/backend/internal/domain/shared"
)

// RecordingEventHandler implements shared.EventHandler and captures every
// event it receives so suites can assert on asynchronous delivery.
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
	err        error
}

// NewRecordingEventHandler subscribes to the given event types; with none
// it acts as a wildcard handler.
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{
		eventTypes: eventTypes,
		events:     make([]shared.DomainEvent, 0),
	}
}

func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *RecordingEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

// Events returns a copy of every captured event.
func (h *RecordingEventHandler) Events() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]shared.DomainEvent, len(h.events))
	copy(events, h.events)
	return events
}

// Count returns how many events were captured.
func (h *RecordingEventHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// Fail makes subsequent Handle calls return err.
func (h *RecordingEventHandler) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset discards captured events and clears the failure mode.
func (h *RecordingEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = h.events[:0]
	h.err = nil
}

// StubEvent is a minimal domain event for wiring tests.
type StubEvent struct {
	shared.BaseDomainEvent
	Data string
}

// NewStubEvent creates a stub event with a fresh event and aggregate ID.
func NewStubEvent(eventType string) *StubEvent {
	return NewStubEventWithID(uuid.New(), eventType)
}

// NewStubEventWithID creates a stub event with a fixed event ID, for
// exercising deduplication paths.
func NewStubEventWithID(eventID uuid.UUID, eventType string) *StubEvent {
	return &StubEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     uuid.New(),
			AggType:   "Invoice",
		},
		Data: "INV-2024-0001",
	}
}

// WaitForEventCount blocks until the handler has captured at least count
// events or the timeout elapses.
func WaitForEventCount(t *testing.T, handler *RecordingEventHandler, count int, timeout time.Duration) bool {
	t.Helper()

	return WaitForCondition(t, func() bool {
		return handler.Count() >= count
	}, timeout, 10*time.Millisecond)
}
