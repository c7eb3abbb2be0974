package board

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/rules"
)

// ErrIllegalMove is wrapped by every error Apply returns for a move the
// board cannot accept.
var ErrIllegalMove = errors.New("illegal move")

// Board is the state of one game.
// It is owned by a single goroutine and is not safe for concurrent use.
type Board struct {
	rules   rules.Rules
	slots   map[ir.Location]string // occupied slots only
	reduced map[ir.Player]bool
	started bool
}

// New deals the initial board.
func New(r rules.Rules) *Board {
	b := &Board{
		rules:   r,
		slots:   make(map[ir.Location]string),
		reduced: make(map[ir.Player]bool),
	}
	for _, p := range r.Seats() {
		for i := range r.RecruitsDealt {
			b.slots[ReserveSlot(p, i)] = fmt.Sprintf("recruit/%d/%d", p, i)
		}
		for k := range r.Workers {
			b.slots[WorkerSlot(p, k)] = fmt.Sprintf("worker/%d/%d", p, k)
		}
	}
	return b
}

// ReserveSlot names player p's i-th reserve slot.
func ReserveSlot(p ir.Player, i int) ir.Location {
	return ir.Location(fmt.Sprintf("p%d/reserve/%d", p, i))
}

// ActiveSlot names player p's j-th active slot.
func ActiveSlot(p ir.Player, j int) ir.Location {
	return ir.Location(fmt.Sprintf("p%d/active/%d", p, j))
}

// WorkerSlot names player p's k-th worker slot.
func WorkerSlot(p ir.Player, k int) ir.Location {
	return ir.Location(fmt.Sprintf("p%d/worker/%d", p, k))
}

// Apply performs one move.
//
// Errors wrap ErrIllegalMove; the board is unchanged when Apply fails.
func (b *Board) Apply(rec ir.MoveRecord) error {
	if err := b.checkPlayer(rec); err != nil {
		return err
	}

	switch rec.Op {
	case ir.OpChooseRecruit, ir.OpEphemeralChooseRecruit:
		if b.reduced[rec.Player] {
			return illegal(rec, "player already confirmed recruits")
		}
		if err := b.checkOwned(rec, rec.Source); err != nil {
			return err
		}
		if err := b.checkOwned(rec, rec.Dest); err != nil {
			return err
		}
		return b.swap(rec)

	case ir.OpPlaceWorker:
		if !b.started {
			return illegal(rec, "workers cannot be placed before the game starts")
		}
		if err := b.checkOwned(rec, rec.Source); err != nil {
			return err
		}
		return b.swap(rec)

	case ir.OpConfirmOneRecruit, ir.OpConfirmRecruits,
		ir.OpEphemeralConfirmOneRecruit, ir.OpEphemeralConfirmRecruits:
		if held := b.activeCount(rec.Player); held != b.rules.RecruitsKept {
			return illegal(rec, "%d of %d active slots filled", held, b.rules.RecruitsKept)
		}
		b.reduced[rec.Player] = true
		return nil

	case ir.OpNormalStart:
		b.started = true
		return nil

	case ir.OpEphemeralPick, ir.OpEphemeralDrop,
		ir.OpRetrieveWorkers, ir.OpDone, ir.OpResign:
		return nil

	default:
		return illegal(rec, "unknown kind")
	}
}

// PhaseComplete reports whether p has confirmed recruits.
// It implements history.PhaseStatus.
func (b *Board) PhaseComplete(p ir.Player) bool {
	return b.reduced[p]
}

// Started reports whether NormalStart has been applied.
func (b *Board) Started() bool {
	return b.started
}

// At returns the occupant of a slot, or "" when it is empty.
func (b *Board) At(loc ir.Location) string {
	return b.slots[loc]
}

// Gate returns a turn gate over every seat backed by this board.
func (b *Board) Gate() *history.Gate {
	return history.NewGate(b, b.rules.Seats()...)
}

// State returns the canonical form of the board.
func (b *Board) State() ir.Object {
	slots := make(ir.Object, len(b.slots))
	for loc, card := range b.slots {
		slots[string(loc)] = ir.String(card)
	}

	reduced := ir.Array{}
	for _, p := range slices.Sorted(maps.Keys(b.reduced)) {
		if b.reduced[p] {
			reduced = append(reduced, ir.Int(p))
		}
	}

	return ir.Object{
		"slots":   slots,
		"reduced": reduced,
		"started": ir.Bool(b.started),
	}
}

// Digest hashes State.
func (b *Board) Digest() (string, error) {
	return ir.StateDigest(b.State())
}

// Replay builds a fresh board and applies records in order.
func Replay(r rules.Rules, records []ir.MoveRecord) (*Board, error) {
	b := New(r)
	for _, rec := range records {
		if err := b.Apply(rec); err != nil {
			return nil, fmt.Errorf("replay record %d: %w", rec.Index, err)
		}
	}
	return b, nil
}

func (b *Board) swap(rec ir.MoveRecord) error {
	if rec.Source == ir.NoLocation || rec.Dest == ir.NoLocation {
		return illegal(rec, "source and destination are required")
	}
	if rec.Source == rec.Dest {
		return illegal(rec, "source and destination are the same slot")
	}
	src, ok := b.slots[rec.Source]
	if !ok {
		return illegal(rec, "source %s is empty", rec.Source)
	}
	dst, occupied := b.slots[rec.Dest]

	b.slots[rec.Dest] = src
	if occupied {
		b.slots[rec.Source] = dst
	} else {
		delete(b.slots, rec.Source)
	}
	return nil
}

func (b *Board) activeCount(p ir.Player) int {
	n := 0
	for j := range b.rules.RecruitsKept {
		if _, ok := b.slots[ActiveSlot(p, j)]; ok {
			n++
		}
	}
	return n
}

func (b *Board) checkPlayer(rec ir.MoveRecord) error {
	if rec.Player < 0 || int(rec.Player) >= b.rules.Players {
		return illegal(rec, "no such player")
	}
	return nil
}

// checkOwned rejects locations inside another player's area.
func (b *Board) checkOwned(rec ir.MoveRecord, loc ir.Location) error {
	prefix := fmt.Sprintf("p%d/", rec.Player)
	if !strings.HasPrefix(string(loc), prefix) {
		return illegal(rec, "%s does not belong to player %d", loc, rec.Player)
	}
	return nil
}

func illegal(rec ir.MoveRecord, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrIllegalMove, rec, fmt.Sprintf(format, args...))
}
