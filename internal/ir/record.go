package ir

import (
	"cmp"
	"time"
)

// NewMove creates a move record.
//
// Returns a ContractError if op is not a declared kind, or if an
// ephemeral-only kind is used on a permanent record. An ephemeral record may
// carry ChooseRecruit: replays deliver choices that were already rewritten.
func NewMove(op OpKind, player Player, src, dst Location, index int, ephemeral bool) (MoveRecord, error) {
	rec := MoveRecord{
		Index:     index,
		Op:        op,
		Player:    player,
		Source:    src,
		Dest:      dst,
		Ephemeral: ephemeral,
	}
	if !op.Valid() {
		return MoveRecord{}, NewContractError(ErrCodeInvalidOp, rec, "undeclared operation kind")
	}
	if op.IsEphemeral() && !ephemeral {
		return MoveRecord{}, NewContractError(ErrCodeEphemeralPermanentKind, rec,
			"ephemeral-only kind on a permanent record")
	}
	return rec, nil
}

// MustMove is like NewMove but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMove(op OpKind, player Player, src, dst Location, index int, ephemeral bool) MoveRecord {
	rec, err := NewMove(op, player, src, dst, index, ephemeral)
	if err != nil {
		panic(err)
	}
	return rec
}

// RewriteAs converts an ephemeral record to the permanent kind newKind and
// clears the ephemeral flag.
func (m *MoveRecord) RewriteAs(newKind OpKind) error {
	if !m.Ephemeral {
		return NewContractError(ErrCodeRewritePermanent, *m, "cannot rewrite a permanent record as %s", newKind)
	}
	if !newKind.Valid() || newKind.IsEphemeral() {
		return NewContractError(ErrCodeInvalidRewriteTarget, *m, "rewrite target %s is not a permanent kind", newKind)
	}
	m.Op = newKind
	m.Ephemeral = false
	return nil
}

// Reindex assigns a new sequence index.
func (m *MoveRecord) Reindex(index int) {
	m.Index = index
}

// SetElapsed overrides the elapsed time. Only the synthetic start record is
// retimed; see history.Canonicalize.
func (m *MoveRecord) SetElapsed(d time.Duration) {
	m.Elapsed = d
}

// EvaluationKey returns Player*stride + Index.
// Keys group one player's moves together and order them by emission.
// Returns a ContractError if the index does not fit in the stride.
func (m MoveRecord) EvaluationKey(stride int64) (int64, error) {
	if m.Index < 0 || int64(m.Index) >= stride {
		return 0, NewContractError(ErrCodeStrideOverflow, m, "index outside evaluation stride %d", stride)
	}
	return int64(m.Player)*stride + int64(m.Index), nil
}

// Reverses reports whether m undoes prev: both are ChooseRecruit and m moves
// back along the exact path prev took.
func (m MoveRecord) Reverses(prev MoveRecord) bool {
	return m.Op == OpChooseRecruit &&
		prev.Op == OpChooseRecruit &&
		m.Source == prev.Dest &&
		m.Dest == prev.Source
}

// CompareContent orders two records by content only (player, index, kind,
// locations, elapsed). It never looks at arrival position.
func CompareContent(a, b MoveRecord) int {
	return cmp.Or(
		cmp.Compare(a.Player, b.Player),
		cmp.Compare(a.Index, b.Index),
		cmp.Compare(a.Op, b.Op),
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Dest, b.Dest),
		cmp.Compare(a.Elapsed, b.Elapsed),
	)
}
