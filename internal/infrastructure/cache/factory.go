package cache

import (
	"fmt"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory builds the idempotency store the server was configured for.
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption adjusts factory behavior.
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger routes factory diagnostics to the given logger.
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store instead of failing startup. Enabled unless switched off.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory returns a factory bound to the given Redis settings.
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore connects a Redis-backed store and verifies reachability.
func (f *IdempotencyStoreFactory) CreateRedisStore() (IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis idempotency store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore returns a process-local store. State is not shared
// between instances, so multi-replica deployments risk recording a payment twice.
func (f *IdempotencyStoreFactory) CreateInMemoryStore() IdempotencyStore {
	return NewInMemoryIdempotencyStore()
}

// CreateStore creates an idempotency store for the configured backend.
// The "redis" backend falls back to in-memory when Redis is unavailable
// and AllowInMemoryFallback is true.
func (f *IdempotencyStoreFactory) CreateStore(backend string) (IdempotencyStore, error) {
	if backend != "redis" {
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("idempotency store ready", zap.String("backend", "redis"))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis idempotency store unavailable and fallback disabled: %w", err)
	}

	f.logger.Warn("redis unreachable, using in-memory idempotency store; duplicate payments are possible across replicas",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
