package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/domain/shared"
)

const (
	defaultOutboxPageSize = 20
	maxOutboxPageSize     = 100
)

// OutboxService exposes operator-facing outbox management: inspecting dead
// letter entries, requeueing them, and reading delivery statistics.
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{
		repo:   repo,
		logger: logger,
	}
}

// OutboxEntryDTO is the API view of an outbox entry.
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter is the pagination query for listing outbox entries.
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

func (f OutboxFilter) normalized() (page, pageSize int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	pageSize = f.PageSize
	if pageSize < 1 {
		pageSize = defaultOutboxPageSize
	}
	if pageSize > maxOutboxPageSize {
		pageSize = maxOutboxPageSize
	}
	return page, pageSize
}

// OutboxListResult is a page of outbox entries.
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO tallies outbox entries per delivery state.
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// GetDeadLetterEntries pages through entries that exhausted their retries.
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (*OutboxListResult, error) {
	page, pageSize := filter.normalized()

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("listing dead letter entries failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
	}

	totalPages := (int(total) + pageSize - 1) / pageSize

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}

	return &OutboxListResult{
		Entries:    dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetEntry looks up a single outbox entry.
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry requeues a single dead letter entry for delivery.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("requeueing outbox entry failed", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retry entry")
	}

	s.logger.Info("dead letter entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead letter entry and returns how many
// were reset. Entries that fail to update are skipped rather than aborting
// the sweep.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var count int64
	page := 1

	for {
		entries, _, err := s.repo.FindDead(ctx, page, maxOutboxPageSize)
		if err != nil {
			s.logger.Error("listing dead letter entries failed", zap.Error(err))
			return count, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("requeueing outbox entry failed", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			count++
		}

		if len(entries) < maxOutboxPageSize {
			break
		}
		page++
	}

	s.logger.Info("dead letter sweep finished", zap.Int64("requeued", count))

	return count, nil
}

// GetStats reports how many entries sit in each delivery state.
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("counting outbox entries by status failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get outbox stats")
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) findEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("loading outbox entry failed", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
