package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/domain/shared"
)

// OutboxProcessorConfig controls polling, batching and cleanup of the
// background outbox dispatcher.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns the production defaults: poll every
// five seconds in batches of 100 and keep sent entries for a week.
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor drains the outbox table in the background: it claims
// pending and retryable entries, deserializes their payloads and hands the
// events to the in-process bus. Delivery failures feed the retry schedule
// until an entry exhausts its attempts and lands in the dead letter state.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		eventBus:   eventBus,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start launches the dispatch loop and, when enabled, the cleanup loop.
// Both run until the context is cancelled or Stop is called.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.runLoop(ctx, p.config.PollInterval, p.dispatchDue)
	if p.config.CleanupEnabled {
		p.runLoop(ctx, p.config.CleanupInterval, p.cleanup)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop cancels the loops and waits for in-flight batches to finish, bounded
// by the given context.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop ticks at the given interval and invokes work until ctx ends.
func (p *OutboxProcessor) runLoop(ctx context.Context, interval time.Duration, work func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	}()
}

// dispatchDue picks up one batch of pending entries followed by one batch
// of entries whose retry backoff has elapsed.
func (p *OutboxProcessor) dispatchDue(ctx context.Context) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	p.claimAndDispatch(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	p.claimAndDispatch(ctx, retryable)
}

// claimAndDispatch atomically marks the entries as processing so that a
// concurrent processor cannot deliver them twice, then dispatches whatever
// the claim returned.
func (p *OutboxProcessor) claimAndDispatch(ctx context.Context, entries []*shared.OutboxEntry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return
	}

	for _, entry := range claimed {
		p.dispatchEntry(ctx, entry)
	}
}

// dispatchEntry deserializes and publishes a single claimed entry.
func (p *OutboxProcessor) dispatchEntry(ctx context.Context, entry *shared.OutboxEntry) {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.failEntry(ctx, entry, "failed to deserialize event", err)
		return
	}

	if err := p.eventBus.Publish(ctx, event); err != nil {
		p.failEntry(ctx, entry, "failed to publish event", err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event processed successfully",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
}

// failEntry records a delivery failure, logs when the entry has exhausted
// its retries, and persists the new state.
func (p *OutboxProcessor) failEntry(ctx context.Context, entry *shared.OutboxEntry, msg string, cause error) {
	p.logger.Error(msg,
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(cause),
	)

	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

// cleanup deletes sent entries older than the retention window.
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return
	}

	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
