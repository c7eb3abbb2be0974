package engine

import (
	"sync"
	"time"
)

// GameClock reports elapsed game time. Locally made moves are stamped with it.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type GameClock interface {
	Elapsed() time.Duration
}

// Clock is a wall-backed game clock.
//
// Elapsed is measured from construction. Only locally made moves read it;
// moves received from other replicas keep the time they were stamped with.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	now   func() time.Time
}

// NewClock creates a clock starting at zero elapsed time.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt creates a clock that already shows elapsed time.
// Used to resume a session from its last stored move.
func NewClockAt(elapsed time.Duration) *Clock {
	return &Clock{start: time.Now().Add(-elapsed), now: time.Now}
}

// Elapsed returns time since the game started.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.start)
}
