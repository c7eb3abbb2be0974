package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`[]`)
	assert.NotEqual(t, hashWithDomain(DomainLog, data), hashWithDomain(DomainState, data))
	assert.Len(t, hashWithDomain(DomainLog, data), 64)
}

func TestLogDigestDeterministic(t *testing.T) {
	records := []MoveRecord{
		MustMove(OpChooseRecruit, 0, "a", "b", 0, false),
		MustMove(OpConfirmRecruits, 0, NoLocation, NoLocation, 1, false),
	}

	d1, err := LogDigest(records)
	require.NoError(t, err)
	d2, err := LogDigest(append([]MoveRecord(nil), records...))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestLogDigestSensitiveToOrder(t *testing.T) {
	a := MustMove(OpChooseRecruit, 0, "a", "b", 0, false)
	b := MustMove(OpChooseRecruit, 1, "c", "d", 0, false)

	assert.NotEqual(t, MustLogDigest([]MoveRecord{a, b}), MustLogDigest([]MoveRecord{b, a}))
}

func TestMoveIDIncludesIndex(t *testing.T) {
	a := MustMove(OpDone, 0, NoLocation, NoLocation, 0, false)
	b := a
	b.Reindex(1)

	idA, err := MoveID(a)
	require.NoError(t, err)
	idB, err := MoveID(b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestStateDigest(t *testing.T) {
	d1, err := StateDigest(Object{"b": Int(1), "a": Int(2)})
	require.NoError(t, err)
	d2, err := StateDigest(Object{"a": Int(2), "b": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
