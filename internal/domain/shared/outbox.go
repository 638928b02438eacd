package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry. Entries move
// PENDING -> PROCESSING -> SENT on success, or through FAILED with
// exponential backoff until DEAD once retries are exhausted.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry is a domain event staged for reliable delivery. It is written
// in the same transaction as the aggregate change that produced the event,
// then dispatched asynchronously.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry stages a serialized domain event for delivery.
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkProcessing claims the entry for delivery. Only pending and failed
// entries may be claimed.
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSent records successful delivery.
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure. While retries remain the entry is
// scheduled for another attempt with doubling backoff (1s, 2s, 4s, ...);
// once the retry budget is spent it becomes a dead letter.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		return
	}

	e.Status = OutboxStatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
	nextRetry := time.Now().Add(backoff)
	e.NextRetryAt = &nextRetry
}

// ResetForRetry requeues a dead letter entry with a fresh retry budget.
// Used by the operator-facing dead letter endpoints.
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter entries")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// CanRetry reports whether a failed entry still has attempts left.
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// IsDead reports whether the entry has exhausted its retries.
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries.
type OutboxRepository interface {
	// Save persists one or more entries, usually inside the transaction
	// of the aggregate change that produced them.
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending returns entries awaiting their first delivery attempt.
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose backoff elapsed before
	// the given time.
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// FindDead pages through dead letter entries.
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// FindByID looks up a single entry.
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing atomically claims the given entries and returns the
	// ones actually claimed.
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// Update persists a state change to an existing entry.
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan removes sent entries older than the given time and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus tallies entries per delivery state.
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
