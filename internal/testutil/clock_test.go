package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock(time.Second)
	assert.Equal(t, time.Duration(0), clock.Current())
}

func TestDeterministicClock_StepsOnEveryRead(t *testing.T) {
	clock := NewDeterministicClock(time.Second)

	assert.Equal(t, 1*time.Second, clock.Elapsed())
	assert.Equal(t, 2*time.Second, clock.Elapsed())
	assert.Equal(t, 2*time.Second, clock.Current())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 13*time.Second, clock.Elapsed())
}

func TestDeterministicClock_ZeroStepIsFrozen(t *testing.T) {
	clock := NewDeterministicClock(0)
	clock.Advance(time.Minute)

	assert.Equal(t, time.Minute, clock.Elapsed())
	assert.Equal(t, time.Minute, clock.Elapsed())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(time.Second)
	clock.Elapsed()
	clock.Elapsed()

	clock.Reset()
	assert.Equal(t, time.Duration(0), clock.Current())
	assert.Equal(t, time.Second, clock.Elapsed())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Elapsed()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Duration(numGoroutines*callsPerGoroutine)*time.Millisecond, clock.Current())
}
