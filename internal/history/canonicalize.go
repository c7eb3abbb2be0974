package history

import (
	"errors"
	"fmt"

	"github.com/roach88/movelog/internal/ir"
)

// ErrPhaseIncomplete is returned by Reconcile while some player is still
// choosing. It is not fatal: retry once the gate opens.
var ErrPhaseIncomplete = errors.New("simultaneous phase is not complete")

// Stats summarizes one canonicalization pass.
type Stats struct {
	Ephemeral      int // ephemeral records consumed
	Dropped        int // pick/drop records elided
	Collapsed      int // reversible pairs removed
	Finalized      int // ephemeral records that survived as permanent
	FirstEphemeral int // boundary index, -1 if there was nothing to do
}

// Options tunes canonicalization. Every replica must use the same options.
type Options struct {
	// Stride is the evaluation key multiplier. Zero means DefaultEvaluationStride.
	Stride int64

	// ConfirmsLast emits all surviving choices before any confirmation
	// instead of keeping each player's confirmation inside that player's
	// group. Both blocks stay player-grouped and key-ordered.
	ConfirmsLast bool
}

func (o Options) stride() int64 {
	if o.Stride == 0 {
		return DefaultEvaluationStride
	}
	return o.Stride
}

// Canonicalize merges ephemeral records into the permanent history and
// returns the new log. Neither log nor pending is modified.
//
// Ephemeral input is every record in log still flagged ephemeral plus the
// pending records. Algorithm:
//
//  1. Split log into permanent and ephemeral records; firstEphemeral is the
//     smallest sequence index among the ephemeral ones.
//  2. Sort ephemeral records by evaluation key (SortByEvaluationKey).
//  3. Walk permanent records in order. Before the first one whose original
//     index exceeds firstEphemeral, emit all ephemeral records.
//  4. Emitting: pick/drop are dropped, confirms become ConfirmRecruits,
//     choices become ChooseRecruit and go through the collapse rule. Any
//     other kind is a ContractError.
//  5. Every emitted record gets index = its position in the output.
//  6. NormalStart takes the elapsed time of the record before it, since each
//     replica executes it locally at a slightly different moment.
//
// With no ephemeral input the result equals the input: canonicalizing a
// canonical log is a no-op.
func Canonicalize(log *Log, pending []ir.MoveRecord, opts Options) (*Log, Stats, error) {
	var permanent, ephemeral []ir.MoveRecord
	for _, rec := range log.All() {
		if rec.Ephemeral {
			ephemeral = append(ephemeral, rec)
		} else {
			permanent = append(permanent, rec)
		}
	}
	for _, rec := range pending {
		if !rec.Ephemeral {
			return nil, Stats{}, ir.NewContractError(ir.ErrCodeNonEphemeralPush, rec,
				"pending record is not ephemeral")
		}
		ephemeral = append(ephemeral, rec)
	}

	if len(ephemeral) == 0 {
		return log.Clone(), Stats{FirstEphemeral: -1}, nil
	}

	firstEphemeral := ephemeral[0].Index
	for _, rec := range ephemeral[1:] {
		firstEphemeral = min(firstEphemeral, rec.Index)
	}

	if err := SortByEvaluationKey(ephemeral, opts.stride()); err != nil {
		return nil, Stats{}, err
	}
	if opts.ConfirmsLast {
		ephemeral = confirmsLast(ephemeral)
	}

	w := &logWriter{stats: Stats{Ephemeral: len(ephemeral), FirstEphemeral: firstEphemeral}}
	drained := false
	for _, rec := range permanent {
		if !drained && rec.Index > firstEphemeral {
			if err := w.drain(ephemeral); err != nil {
				return nil, Stats{}, err
			}
			drained = true
		}
		w.appendPermanent(rec)
	}
	if !drained {
		if err := w.drain(ephemeral); err != nil {
			return nil, Stats{}, err
		}
	}

	return NewLog(w.out...), w.stats, nil
}

// confirmsLast moves confirmation records behind everything else, keeping
// the relative order of both parts.
func confirmsLast(sorted []ir.MoveRecord) []ir.MoveRecord {
	out := make([]ir.MoveRecord, 0, len(sorted))
	var confirms []ir.MoveRecord
	for _, rec := range sorted {
		switch rec.Op {
		case ir.OpEphemeralConfirmOneRecruit, ir.OpEphemeralConfirmRecruits:
			confirms = append(confirms, rec)
		default:
			out = append(out, rec)
		}
	}
	return append(out, confirms...)
}

// logWriter builds the canonical output.
type logWriter struct {
	out []ir.MoveRecord

	// floor is the output length when the ephemeral drain began. Records
	// below it were permanent before this pass and are never collapsed.
	floor int

	stats Stats
}

func (w *logWriter) push(rec ir.MoveRecord) {
	rec.Reindex(len(w.out))
	if rec.Op == ir.OpNormalStart && len(w.out) > 0 {
		rec.SetElapsed(w.out[len(w.out)-1].Elapsed)
	}
	w.out = append(w.out, rec)
}

func (w *logWriter) appendPermanent(rec ir.MoveRecord) {
	w.push(rec)
}

// drain emits every ephemeral record, which must already be sorted.
func (w *logWriter) drain(ephemeral []ir.MoveRecord) error {
	w.floor = len(w.out)
	for _, rec := range ephemeral {
		if err := w.finalize(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *logWriter) finalize(rec ir.MoveRecord) error {
	switch rec.Op {
	case ir.OpEphemeralPick, ir.OpEphemeralDrop:
		w.stats.Dropped++
		return nil

	case ir.OpEphemeralConfirmOneRecruit, ir.OpEphemeralConfirmRecruits:
		if err := rec.RewriteAs(ir.OpConfirmRecruits); err != nil {
			return err
		}
		w.stats.Finalized++
		w.push(rec)
		return nil

	case ir.OpEphemeralChooseRecruit, ir.OpChooseRecruit:
		if err := rec.RewriteAs(ir.OpChooseRecruit); err != nil {
			return err
		}
		w.collapseOrPush(rec)
		return nil

	case ir.OpNormalStart, ir.OpConfirmOneRecruit, ir.OpConfirmRecruits,
		ir.OpPlaceWorker, ir.OpRetrieveWorkers, ir.OpDone, ir.OpResign:
		return ir.NewContractError(ir.ErrCodeUnknownEphemeralOp, rec,
			"%s cannot be finalized from the ephemeral phase", rec.Op)

	default:
		return ir.NewContractError(ir.ErrCodeUnknownEphemeralOp, rec,
			"no finalization rule for %s", rec.Op)
	}
}

// collapseOrPush applies the back-and-forth rule: if rec undoes the choice
// on top of the output, both disappear. The output acts as a stack, so a
// nested run like x->y, y->z, z->y, y->x unwinds completely.
func (w *logWriter) collapseOrPush(rec ir.MoveRecord) {
	if top := len(w.out) - 1; top >= w.floor && rec.Reverses(w.out[top]) {
		w.out = w.out[:top]
		w.stats.Collapsed++
		w.stats.Finalized--
		return
	}
	w.stats.Finalized++
	w.push(rec)
}

// Canonicalizer runs reconciliation for one replica.
type Canonicalizer struct {
	Options

	// Gate, when set, must report every player complete before Reconcile runs.
	Gate *Gate
}

// Reconcile canonicalizes log with the buffered moves and commits the result.
//
// The commit is atomic: on any error the log and the buffer are left exactly
// as they were. Returns ErrPhaseIncomplete if the gate is still closed.
func (c *Canonicalizer) Reconcile(log *Log, buf *Buffer) (Stats, error) {
	if c.Gate != nil && !c.Gate.AllPhaseComplete() {
		return Stats{}, ErrPhaseIncomplete
	}

	out, stats, err := Canonicalize(log, buf.Records(), c.Options)
	if err != nil {
		return Stats{}, fmt.Errorf("reconcile: %w", err)
	}

	log.replace(out)
	buf.Drain()
	return stats, nil
}
