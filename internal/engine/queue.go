package engine

import (
	"sync"
	"time"

	"github.com/roach88/movelog/internal/ir"
)

// Event is one move delivered to a replica.
//
// Local events are made by a player at this replica: the engine assigns the
// sequence index and, when Elapsed is zero, stamps the game clock. Remote
// events were made at another replica and keep the index and time their
// origin assigned.
type Event struct {
	Op     ir.OpKind
	Player ir.Player
	Source ir.Location
	Dest   ir.Location

	// Ephemeral marks a move of the simultaneous phase. Ephemeral-only
	// kinds are always ephemeral.
	Ephemeral bool

	Elapsed time.Duration

	// Remote events carry Index from their origin.
	Remote bool
	Index  int
}

// IsEphemeral reports whether the event goes to the ephemeral buffer.
func (ev Event) IsEphemeral() bool {
	return ev.Ephemeral || ev.Op.IsEphemeral()
}

// eventQueue is the replica's inbox: an unbounded FIFO filled by player
// input and network receivers and drained only by Run. Unbounded so a burst
// of remote moves never stalls the transport that delivers them.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool

	// ready holds at most one pending wakeup; Close closes it.
	ready chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		ready:  make(chan struct{}, 1),
	}
}

// Enqueue appends ev. Safe from any goroutine. Returns false once the queue
// is closed.
func (q *eventQueue) Enqueue(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, ev)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest event, or reports false when empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0] // reuse the backing array
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// Wait returns a channel that fires when events may be available, or is
// closed once the queue is. Callers select on it alongside ctx.Done() and
// then drain with TryDequeue.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close stops further enqueues and wakes Run. Queued events stay
// dequeueable.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}
