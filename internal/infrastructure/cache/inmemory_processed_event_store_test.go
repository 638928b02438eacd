package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProcessedEventStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryProcessedEventStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "duplicate mark should return false")
	})

	t.Run("expired mark can be reclaimed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-2", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "evt-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryProcessedEventStore_IsProcessed(t *testing.T) {
	store := NewInMemoryProcessedEventStore()
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "seen", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "seen")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = store.MarkProcessed(ctx, "short-lived", 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	processed, err = store.IsProcessed(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, processed, "expired event should read as unprocessed")
}

func TestInMemoryProcessedEventStore_Cleanup(t *testing.T) {
	store := NewInMemoryProcessedEventStore()
	defer store.Close()

	ctx := context.Background()

	store.MarkProcessed(ctx, "ephemeral-1", 10*time.Millisecond)
	store.MarkProcessed(ctx, "ephemeral-2", 10*time.Millisecond)
	store.MarkProcessed(ctx, "durable", time.Hour)
	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "durable")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryProcessedEventStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryProcessedEventStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "contested", time.Hour)
			results <- err == nil && isNew
		}()
	}

	newCount := 0
	for i := 0; i < workers; i++ {
		if <-results {
			newCount++
		}
	}

	assert.Equal(t, 1, newCount, "exactly one goroutine should win the mark")
}

func TestInMemoryProcessedEventStore_Close(t *testing.T) {
	store := NewInMemoryProcessedEventStore()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
