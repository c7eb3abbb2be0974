package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a game clock that only moves when told to.
//
// Every call to Elapsed advances the clock by a fixed step first, so a run
// of moves gets strictly increasing, reproducible timestamps. Step zero
// freezes the clock.
//
// Implements engine.GameClock.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu      sync.Mutex
	elapsed time.Duration
	step    time.Duration
}

// NewDeterministicClock creates a clock at zero that advances by step on
// every read.
func NewDeterministicClock(step time.Duration) *DeterministicClock {
	return &DeterministicClock{step: step}
}

// Elapsed advances by one step and returns the new time.
func (c *DeterministicClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed += c.step
	return c.elapsed
}

// Current returns the time without advancing.
func (c *DeterministicClock) Current() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed += d
}

// Reset returns the clock to zero.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = 0
}
