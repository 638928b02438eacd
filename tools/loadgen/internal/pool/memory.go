package pool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryPool is an in-memory Pool guarded by a single lock. One load run
// targets one API process, so contention stays bounded by HTTP round trips.
type MemoryPool struct {
	mu      sync.RWMutex
	values  map[Kind][]*Harvested
	config  Config
	startAt time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	adds      atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64

	sweepTicker *time.Ticker
	sweepDone   chan struct{}
	closed      atomic.Bool

	rng *rand.Rand
}

// NewMemoryPool creates a MemoryPool. If the config enables a sweep interval,
// a background goroutine drops expired values until Close is called.
func NewMemoryPool(config Config) *MemoryPool {
	p := &MemoryPool{
		values:    make(map[Kind][]*Harvested),
		config:    config,
		startAt:   time.Now(),
		sweepDone: make(chan struct{}),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if config.SweepInterval > 0 {
		p.sweepTicker = time.NewTicker(config.SweepInterval)
		go p.sweepLoop()
	}

	return p
}

// Add stores a value, evicting one of the same kind if the cap is reached.
func (p *MemoryPool) Add(ctx context.Context, value *Harvested) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.adds.Add(1)
	evicted := 0

	values := p.values[value.Kind]
	if p.config.MaxPerKind > 0 && len(values) >= p.config.MaxPerKind {
		evicted = p.evictOne(value.Kind)
	}

	p.values[value.Kind] = append(p.values[value.Kind], value)
	return evicted, nil
}

// evictOne drops one value of the given kind per the eviction policy.
// Must be called with the lock held.
func (p *MemoryPool) evictOne(kind Kind) int {
	values := p.values[kind]
	if len(values) == 0 {
		return 0
	}

	var idx int
	switch p.config.Eviction {
	case EvictionFIFO:
		idx = 0
	case EvictionLRU:
		idx = 0
		oldest := values[0].LastUsedAt()
		for i, v := range values {
			if v.LastUsedAt().Before(oldest) {
				oldest = v.LastUsedAt()
				idx = i
			}
		}
	case EvictionRandom:
		idx = p.rng.Intn(len(values))
	}

	p.values[kind] = append(values[:idx], values[idx+1:]...)
	p.evictions.Add(1)
	return 1
}

// Pick returns a random non-expired value of the given kind, or nil.
func (p *MemoryPool) Pick(ctx context.Context, kind Kind) (*Harvested, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.values[kind]
	usable := make([]*Harvested, 0, len(values))
	for _, v := range values {
		if !v.Expired() {
			usable = append(usable, v)
		}
	}

	if len(usable) == 0 {
		p.misses.Add(1)
		return nil, nil
	}

	v := usable[p.rng.Intn(len(usable))]
	v.Touch()
	p.hits.Add(1)
	return v, nil
}

// All returns every non-expired value of the given kind.
func (p *MemoryPool) All(ctx context.Context, kind Kind) ([]*Harvested, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	values := p.values[kind]
	result := make([]*Harvested, 0, len(values))
	for _, v := range values {
		if !v.Expired() {
			result = append(result, v)
		}
	}
	return result, nil
}

// Count returns the number of values held for the given kind.
func (p *MemoryPool) Count(ctx context.Context, kind Kind) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.values[kind]), nil
}

// Remove drops a specific value from the pool.
func (p *MemoryPool) Remove(ctx context.Context, value *Harvested) (bool, error) {
	if p.closed.Load() {
		return false, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.values[value.Kind]
	for i, v := range values {
		if v == value {
			p.values[value.Kind] = append(values[:i], values[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Clear drops all values of the given kind.
func (p *MemoryPool) Clear(ctx context.Context, kind Kind) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	count := len(p.values[kind])
	delete(p.values, kind)
	return count, nil
}

// ClearAll drops every value in the pool.
func (p *MemoryPool) ClearAll(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.values = make(map[Kind][]*Harvested)
	return nil
}

// Sweep drops expired values.
func (p *MemoryPool) Sweep(ctx context.Context) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for kind, values := range p.values {
		kept := make([]*Harvested, 0, len(values))
		for _, v := range values {
			if !v.Expired() {
				kept = append(kept, v)
			} else {
				total++
			}
		}
		if len(kept) != len(values) {
			p.values[kind] = kept
		}
	}

	p.expired.Add(int64(total))
	return total, nil
}

func (p *MemoryPool) sweepLoop() {
	for {
		select {
		case <-p.sweepTicker.C:
			_, _ = p.Sweep(context.Background())
		case <-p.sweepDone:
			return
		}
	}
}

// Stats returns the pool's statistics.
func (p *MemoryPool) Stats(ctx context.Context) (Stats, error) {
	if p.closed.Load() {
		return Stats{}, ErrClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		ValuesByKind: make(map[Kind]int64),
		Hits:         p.hits.Load(),
		Misses:       p.misses.Load(),
		Evictions:    p.evictions.Load(),
		Expired:      p.expired.Load(),
		Adds:         p.adds.Load(),
		Uptime:       time.Since(p.startAt),
	}

	for kind, values := range p.values {
		count := int64(len(values))
		stats.TotalValues += count
		stats.ValuesByKind[kind] = count
	}

	return stats, nil
}

// Kinds returns every kind that currently has values.
func (p *MemoryPool) Kinds(ctx context.Context) ([]Kind, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	kinds := make([]Kind, 0, len(p.values))
	for kind, values := range p.values {
		if len(values) > 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// Close stops the sweeper and rejects further calls.
func (p *MemoryPool) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}

	if p.sweepTicker != nil {
		p.sweepTicker.Stop()
		close(p.sweepDone)
	}
	return nil
}
