package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually controlled clock for tests
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFakeClock creates a fake clock frozen at the given instant
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the fake clock's current time
func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the fake clock forward by the given duration
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the fake clock to the given instant
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
