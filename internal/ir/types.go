package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Player identifies a seat at the table.
type Player int

// Location is an opaque board location (a recruit slot, a worker space).
// Locations are only ever compared for equality.
type Location string

// NoLocation is used by moves that do not involve a location.
const NoLocation Location = ""

// MoveRecord is one player action.
//
// A record is created when a player acts. Ephemeral records live in the
// ephemeral buffer until reconciliation rewrites them as permanent; permanent
// records are immutable once spliced into the log. The mutators (RewriteAs,
// Reindex, SetElapsed) are the only places a record changes.
type MoveRecord struct {
	// Index is the sequence index. For ephemeral records it is assigned by
	// the originating replica and is part of the move's content.
	Index int

	Op     OpKind
	Player Player
	Source Location
	Dest   Location

	// Ephemeral is fixed at creation and cleared only by RewriteAs.
	Ephemeral bool

	// Elapsed is game-clock time when the move was made.
	Elapsed time.Duration
}

// recordJSON is the wire shape of a MoveRecord. Elapsed is carried as integer
// milliseconds so canonical encodings never see a float.
type recordJSON struct {
	Index     int      `json:"index"`
	Op        OpKind   `json:"op"`
	Player    Player   `json:"player"`
	Source    Location `json:"source,omitempty"`
	Dest      Location `json:"dest,omitempty"`
	Ephemeral bool     `json:"ephemeral,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// MarshalJSON implements json.Marshaler.
func (m MoveRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Index:     m.Index,
		Op:        m.Op,
		Player:    m.Player,
		Source:    m.Source,
		Dest:      m.Dest,
		Ephemeral: m.Ephemeral,
		ElapsedMS: m.Elapsed.Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// The decoded record is validated with the same rules as NewMove.
func (m *MoveRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec, err := NewMove(raw.Op, raw.Player, raw.Source, raw.Dest, raw.Index, raw.Ephemeral)
	if err != nil {
		return err
	}
	rec.Elapsed = time.Duration(raw.ElapsedMS) * time.Millisecond
	*m = rec
	return nil
}

// String renders the record for logs and text output.
func (m MoveRecord) String() string {
	s := fmt.Sprintf("#%d P%d %s", m.Index, m.Player, m.Op)
	if m.Source != NoLocation || m.Dest != NoLocation {
		s += fmt.Sprintf(" %s->%s", m.Source, m.Dest)
	}
	if m.Ephemeral {
		s += " (ephemeral)"
	}
	return s
}
