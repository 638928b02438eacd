package cache

import (
	"context"
	"time"
)

// IdempotencyStore stores responses of completed requests keyed by an
// Idempotency-Key header value, so retried requests can replay the
// original response instead of re-executing the operation.
type IdempotencyStore interface {
	// Lookup returns the stored response for a key, and whether the
	// key was found (and not expired).
	Lookup(ctx context.Context, key string) ([]byte, bool, error)

	// Store saves a response under a key with the given TTL.
	Store(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// Close releases any resources held by the store.
	Close() error
}
