// Package clock abstracts wall-clock time so that time-sensitive
// logic can be tested deterministically. Production code receives a
// Clock and never calls time.Now directly.
package clock

import "time"

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock
type SystemClock struct{}

// NewSystemClock creates a clock backed by the real wall clock
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
