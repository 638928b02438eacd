package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	eventapp "github.com/invoicing/backend/internal/application/event"
	"github.com/invoicing/backend/internal/domain/shared"
)

// memOutboxRepo is a map-backed outbox store for handler tests.
type memOutboxRepo struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMemOutboxRepo() *memOutboxRepo {
	return &memOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memOutboxRepo) seedDead() *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "invoicing.invoice.created",
		AggregateID:   uuid.New(),
		AggregateType: "Invoice",
		Status:        shared.OutboxStatusDead,
		RetryCount:    shared.DefaultMaxRetries,
		MaxRetries:    shared.DefaultMaxRetries,
		LastError:     "bus unavailable",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *memOutboxRepo) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memOutboxRepo) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutboxRepo) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutboxRepo) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	return dead, int64(len(dead)), nil
}

func (r *memOutboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	return r.entries[id], nil
}

func (r *memOutboxRepo) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutboxRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memOutboxRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *memOutboxRepo) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newOutboxRouter(repo shared.OutboxRepository) *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	NewOutboxHandler(eventapp.NewOutboxService(repo, zap.NewNop())).RegisterRoutes(api)
	return router
}

func TestOutboxHandler_GetStats(t *testing.T) {
	repo := newMemOutboxRepo()
	repo.seedDead()
	repo.seedDead()
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var stats eventapp.OutboxStatsDTO
	decodeData(t, w, &stats)
	assert.Equal(t, int64(2), stats.Dead)
	assert.Equal(t, int64(2), stats.Total)
}

func TestOutboxHandler_ListDeadLetters(t *testing.T) {
	repo := newMemOutboxRepo()
	entry := repo.seedDead()
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/dead-letters", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var result eventapp.OutboxListResult
	decodeData(t, w, &result)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, entry.ID, result.Entries[0].ID)
	assert.Equal(t, "DEAD", result.Entries[0].Status)
}

func TestOutboxHandler_ListDeadLetters_RejectsBadPageSize(t *testing.T) {
	router := newOutboxRouter(newMemOutboxRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/dead-letters?page_size=500", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutboxHandler_GetEntry(t *testing.T) {
	repo := newMemOutboxRepo()
	entry := repo.seedDead()
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/entries/"+entry.ID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var dto eventapp.OutboxEntryDTO
	decodeData(t, w, &dto)
	assert.Equal(t, entry.ID, dto.ID)
	assert.Equal(t, "invoicing.invoice.created", dto.EventType)
}

func TestOutboxHandler_GetEntry_NotFound(t *testing.T) {
	router := newOutboxRouter(newMemOutboxRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/entries/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOutboxHandler_GetEntry_InvalidID(t *testing.T) {
	router := newOutboxRouter(newMemOutboxRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/outbox/entries/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutboxHandler_RetryDeadLetter(t *testing.T) {
	repo := newMemOutboxRepo()
	entry := repo.seedDead()
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/system/outbox/dead-letters/"+entry.ID.String()+"/retry", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var dto eventapp.OutboxEntryDTO
	decodeData(t, w, &dto)
	assert.Equal(t, "PENDING", dto.Status)
	assert.Zero(t, dto.RetryCount)
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[entry.ID].Status)
}

func TestOutboxHandler_RetryDeadLetter_NotDead(t *testing.T) {
	repo := newMemOutboxRepo()
	entry := repo.seedDead()
	entry.Status = shared.OutboxStatusSent
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/system/outbox/dead-letters/"+entry.ID.String()+"/retry", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOutboxHandler_RetryAllDeadLetters(t *testing.T) {
	repo := newMemOutboxRepo()
	repo.seedDead()
	repo.seedDead()
	repo.seedDead()
	router := newOutboxRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/system/outbox/dead-letters/retry", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var result RetriedCountResponse
	decodeData(t, w, &result)
	assert.Equal(t, int64(3), result.Retried)
}
