package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movelog/internal/ir"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for p := 0; p < 3; p++ {
		require.True(t, q.Enqueue(Event{Op: ir.OpDone, Player: ir.Player(p)}))
	}

	for p := 0; p < 3; p++ {
		ev, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, ir.Player(p), ev.Player)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Op: ir.OpDone})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Op: ir.OpDone})
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(Event{Op: ir.OpDone}), "enqueue after close should fail")

	// Events queued before close are still delivered.
	assert.False(t, q.Drained())
	_, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.True(t, q.Drained())

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Enqueue(Event{Op: ir.OpDone})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}

func TestEvent_IsEphemeral(t *testing.T) {
	assert.True(t, Event{Op: ir.OpEphemeralPick}.IsEphemeral())
	assert.True(t, Event{Op: ir.OpChooseRecruit, Ephemeral: true}.IsEphemeral())
	assert.False(t, Event{Op: ir.OpChooseRecruit}.IsEphemeral())
}
