package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisProcessedEventStore implements shared.IdempotencyStore using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share event processing state.
type RedisProcessedEventStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProcessedEventStore creates a new Redis-based processed event store
func NewRedisProcessedEventStore(cfg RedisConfig) (*RedisProcessedEventStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProcessedEventStore{
		client:    client,
		keyPrefix: "event:idempotency:",
	}, nil
}

// NewRedisProcessedEventStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisProcessedEventStoreWithClient(client *redis.Client, keyPrefix string) *RedisProcessedEventStore {
	if keyPrefix == "" {
		keyPrefix = "event:idempotency:"
	}
	return &RedisProcessedEventStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks an event as processed with a TTL.
// Returns true if the event was newly marked, false if it was already processed.
// Uses SETNX (SET if Not eXists) for atomic operation.
func (s *RedisProcessedEventStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + eventID

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}

	return result, nil
}

// IsProcessed checks if an event has already been processed
func (s *RedisProcessedEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	key := s.keyPrefix + eventID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}

	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisProcessedEventStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisProcessedEventStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisProcessedEventStore implements shared.IdempotencyStore
var _ shared.IdempotencyStore = (*RedisProcessedEventStore)(nil)
