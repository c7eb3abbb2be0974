package history

import (
	"iter"
	"slices"

	"github.com/roach88/movelog/internal/ir"
)

// RecordID addresses a record in a Log's arena. IDs are stable for the life
// of the Log, independent of the record's position or sequence index.
type RecordID int

// NoRecord is returned when there is no such record.
const NoRecord RecordID = -1

// Log is the ordered move history.
//
// Records live in an arena; order holds the chain from head to tail. The
// log is append-only apart from the reconciliation splice, which replaces
// the whole order in one step (see Canonicalize).
type Log struct {
	arena []ir.MoveRecord
	order []RecordID
	pos   map[RecordID]int // position of each linked ID in order
}

// NewLog creates a log holding records in the given order.
// Records are copied.
func NewLog(records ...ir.MoveRecord) *Log {
	l := &Log{pos: make(map[RecordID]int, len(records))}
	for _, rec := range records {
		l.Append(rec)
	}
	return l
}

// Append adds a record at the tail and returns its ID.
func (l *Log) Append(rec ir.MoveRecord) RecordID {
	id := RecordID(len(l.arena))
	l.arena = append(l.arena, rec)
	l.linkAfter(id, l.Tail())
	return id
}

// linkAfter links id into the chain immediately after pred.
// pred == NoRecord links id at the head.
func (l *Log) linkAfter(id, pred RecordID) {
	if l.pos == nil {
		l.pos = make(map[RecordID]int)
	}
	at := 0
	if pred != NoRecord {
		at = l.pos[pred] + 1
	}
	l.order = slices.Insert(l.order, at, id)
	for i := at; i < len(l.order); i++ {
		l.pos[l.order[i]] = i
	}
}

// Len returns the number of linked records.
func (l *Log) Len() int {
	return len(l.order)
}

// Head returns the first record's ID, or NoRecord if the log is empty.
func (l *Log) Head() RecordID {
	if len(l.order) == 0 {
		return NoRecord
	}
	return l.order[0]
}

// Tail returns the last record's ID, or NoRecord if the log is empty.
func (l *Log) Tail() RecordID {
	if len(l.order) == 0 {
		return NoRecord
	}
	return l.order[len(l.order)-1]
}

// Next returns the successor of id, or NoRecord at the tail.
func (l *Log) Next(id RecordID) RecordID {
	p, ok := l.pos[id]
	if !ok || p+1 >= len(l.order) {
		return NoRecord
	}
	return l.order[p+1]
}

// Get returns a copy of the record with the given ID.
func (l *Log) Get(id RecordID) (ir.MoveRecord, bool) {
	if _, ok := l.pos[id]; !ok {
		return ir.MoveRecord{}, false
	}
	return l.arena[id], true
}

// At returns the record at position i in log order.
func (l *Log) At(i int) ir.MoveRecord {
	return l.arena[l.order[i]]
}

// All iterates records in log order.
func (l *Log) All() iter.Seq2[RecordID, ir.MoveRecord] {
	return func(yield func(RecordID, ir.MoveRecord) bool) {
		for _, id := range l.order {
			if !yield(id, l.arena[id]) {
				return
			}
		}
	}
}

// Records returns a copy of the records in log order.
func (l *Log) Records() []ir.MoveRecord {
	out := make([]ir.MoveRecord, len(l.order))
	for i, id := range l.order {
		out[i] = l.arena[id]
	}
	return out
}

// HasEphemeral reports whether any linked record is still ephemeral.
func (l *Log) HasEphemeral() bool {
	for _, rec := range l.All() {
		if rec.Ephemeral {
			return true
		}
	}
	return false
}

// Digest returns ir.LogDigest of the records in order.
func (l *Log) Digest() (string, error) {
	return ir.LogDigest(l.Records())
}

// Clone returns an independent copy of the log.
func (l *Log) Clone() *Log {
	c := &Log{
		arena: slices.Clone(l.arena),
		order: slices.Clone(l.order),
		pos:   make(map[RecordID]int, len(l.pos)),
	}
	for id, p := range l.pos {
		c.pos[id] = p
	}
	return c
}

// replace swaps in the contents of other. Used to commit a reconciliation.
func (l *Log) replace(other *Log) {
	l.arena = other.arena
	l.order = other.order
	l.pos = other.pos
}
