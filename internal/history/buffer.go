package history

import (
	"cmp"
	"slices"

	"github.com/roach88/movelog/internal/ir"
)

// DefaultEvaluationStride is the K in Player*K + Index.
// It must exceed any sequence index a game can reach.
const DefaultEvaluationStride int64 = 1_000_000

// Buffer holds the ephemeral moves of the current simultaneous phase.
//
// Push appends in arrival order, but arrival order carries no meaning and
// nothing downstream may depend on it. The buffer is owned by one replica's
// event loop; it is not safe for concurrent use.
type Buffer struct {
	records []ir.MoveRecord
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push appends an ephemeral record.
// Returns a ContractError if the record is not ephemeral.
func (b *Buffer) Push(rec ir.MoveRecord) error {
	if !rec.Ephemeral {
		return ir.NewContractError(ir.ErrCodeNonEphemeralPush, rec, "only ephemeral records may be buffered")
	}
	b.records = append(b.records, rec)
	return nil
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	return len(b.records)
}

// Records returns a copy of the buffered records in arrival order.
func (b *Buffer) Records() []ir.MoveRecord {
	return slices.Clone(b.records)
}

// Drain returns the buffered records and empties the buffer.
func (b *Buffer) Drain() []ir.MoveRecord {
	out := b.records
	b.records = nil
	return out
}

// Sorted returns the buffered records ordered by evaluation key.
// See SortByEvaluationKey.
func (b *Buffer) Sorted(stride int64) ([]ir.MoveRecord, error) {
	out := b.Records()
	if err := SortByEvaluationKey(out, stride); err != nil {
		return nil, err
	}
	return out, nil
}

// SortByEvaluationKey stably sorts records by Player*stride + Index.
//
// All of one player's moves end up contiguous, in the order that player
// emitted them. Keys are unique by construction; if two records still tie,
// they are ordered by content so the result never depends on input order.
func SortByEvaluationKey(records []ir.MoveRecord, stride int64) error {
	keys := make([]int64, len(records))
	for i, rec := range records {
		k, err := rec.EvaluationKey(stride)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(keys[a], keys[b]),
			ir.CompareContent(records[a], records[b]),
		)
	})

	sorted := make([]ir.MoveRecord, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
	return nil
}
