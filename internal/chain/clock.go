package chain

import (
	"sync"
	"time"
)

// Clock supplies the ledger's wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a clock that only moves when told to.
type ManualClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewManualClock creates a clock set to 2024-01-01 00:00:00 UTC.
func NewManualClock() *ManualClock {
	return &ManualClock{current: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// NewManualClockAt creates a clock set to t.
func NewManualClockAt(t time.Time) *ManualClock {
	return &ManualClock{current: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
