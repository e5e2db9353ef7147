package testutil

import (
	"fmt"
	"sync"
	"time"
)

// VirtualClock is a manually driven clock for deterministic time-based tests.
//
// Time only moves when AdvanceTo or Reset is called; it never reads the wall
// clock. VirtualScheduler owns one and advances it as tasks come due.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtualClock creates a clock at time zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the elapsed virtual time.
func (c *VirtualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AdvanceTo moves the clock forward to t.
//
// Monotonic: returns an error, leaving the clock untouched, if t is in the past.
func (c *VirtualClock) AdvanceTo(t time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		return fmt.Errorf("virtual clock cannot move backwards: %v < %v", t, c.now)
	}
	c.now = t
	return nil
}

// Reset returns the clock to time zero so a scenario can be replayed.
func (c *VirtualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}
