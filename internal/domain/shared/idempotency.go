package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a handler has already seen.
type IdempotencyStore interface {
	// MarkProcessed records an event ID for the given TTL. It reports true
	// when the ID was new and false when it had been recorded before.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event ID has been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)


	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers.
type IdempotencyConfig struct {
	// TTL bounds how long a processed event ID is remembered. Past it,
	// a replay of the same event runs again.
	TTL time.Duration


	Enabled bool
}

// DefaultIdempotencyConfig enables suppression with a one day window.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
