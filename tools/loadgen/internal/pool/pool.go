package pool

import (
	"context"
	"time"
)

// EvictionPolicy decides which value is dropped when a kind is full.
type EvictionPolicy int

const (
	// EvictionFIFO drops the oldest value first.
	EvictionFIFO EvictionPolicy = iota

	// EvictionLRU drops the least recently used value first.
	EvictionLRU

	// EvictionRandom drops a random value.
	EvictionRandom
)

func (e EvictionPolicy) String() string {
	switch e {
	case EvictionFIFO:
		return "FIFO"
	case EvictionLRU:
		return "LRU"
	case EvictionRandom:
		return "Random"
	default:
		return "Unknown"
	}
}

// ParseEvictionPolicy parses a string into an EvictionPolicy, defaulting to FIFO.
func ParseEvictionPolicy(s string) EvictionPolicy {
	switch s {
	case "LRU", "lru":
		return EvictionLRU
	case "Random", "random", "RANDOM":
		return EvictionRandom
	default:
		return EvictionFIFO
	}
}

// Stats describes the state and hit rate of a pool.
type Stats struct {
	// TotalValues is the number of values currently held.
	TotalValues int64

	// ValuesByKind is the count of values per kind.
	ValuesByKind map[Kind]int64

	// Hits is the number of Pick calls that returned a value.
	Hits int64

	// Misses is the number of Pick calls that found nothing usable.
	Misses int64

	// Evictions is the number of values dropped to make room.
	Evictions int64

	// Expired is the number of values removed by Sweep.
	Expired int64

	// Adds is the total number of values added.
	Adds int64

	// Uptime is how long the pool has been running.
	Uptime time.Duration
}

// HitRate returns the hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Pool stores harvested values by kind and hands them back out.
type Pool interface {
	// Add stores a value. It returns how many values were evicted to make room.
	Add(ctx context.Context, value *Harvested) (evicted int, err error)

	// Pick returns a random usable value of the given kind, or nil if none exist.
	Pick(ctx context.Context, kind Kind) (*Harvested, error)

	// All returns every usable value of the given kind.
	All(ctx context.Context, kind Kind) ([]*Harvested, error)

	// Count returns the number of values held for the given kind.
	Count(ctx context.Context, kind Kind) (int, error)

	// Remove drops a specific value. It reports whether the value was found.
	Remove(ctx context.Context, value *Harvested) (bool, error)

	// Clear drops all values of the given kind and returns how many were dropped.
	Clear(ctx context.Context, kind Kind) (int, error)

	// ClearAll drops every value in the pool.
	ClearAll(ctx context.Context) error

	// Sweep drops expired values and returns how many were dropped.
	Sweep(ctx context.Context) (int, error)

	// Stats returns the pool's statistics.
	Stats(ctx context.Context) (Stats, error)

	// Kinds returns every kind that currently has values.
	Kinds(ctx context.Context) ([]Kind, error)

	// Close stops background work and rejects further calls.
	Close() error
}

// Config holds pool tuning options.
type Config struct {
	// DefaultTTL is the time-to-live applied to harvested values (0 means no expiration).
	DefaultTTL time.Duration

	// MaxPerKind caps the number of values per kind (0 means unlimited).
	MaxPerKind int

	// Eviction decides which value is dropped when a kind is at its cap.
	Eviction EvictionPolicy

	// SweepInterval is how often expired values are dropped (0 disables the sweeper).
	SweepInterval time.Duration
}

// DefaultConfig returns a Config suited to a load run of a few minutes.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:    5 * time.Minute,
		MaxPerKind:    1000,
		Eviction:      EvictionFIFO,
		SweepInterval: time.Minute,
	}
}
