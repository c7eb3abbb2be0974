package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movelog/internal/ir"
)

func chooseSpec(p, idx int, src, dst string, ms int64) MoveSpec {
	return MoveSpec{Index: idx, Op: "EphemeralChooseRecruit", Player: p, Source: src, Dest: dst, ElapsedMS: ms}
}

func confirmSpec(p, idx int, ms int64) MoveSpec {
	return MoveSpec{Index: idx, Op: "EphemeralConfirmOneRecruit", Player: p, ElapsedMS: ms}
}

func twoPlayerScenario() *Scenario {
	return &Scenario{
		Name:        "two_player",
		Description: "both players choose and confirm",
		Ephemeral: []MoveSpec{
			chooseSpec(1, 0, "p1/reserve/0", "p1/active/0", 900),
			chooseSpec(0, 0, "p0/reserve/1", "p0/active/0", 1000),
			confirmSpec(1, 1, 1500),
			confirmSpec(0, 1, 1800),
		},
		Replicas: []Replica{
			{Name: "alice", Order: []int{0, 1, 2, 3}},
			{Name: "bob", Order: []int{3, 2, 1, 0}},
		},
		Assertions: []Assertion{
			{Type: AssertOps, Ops: []string{"ChooseRecruit", "ConfirmRecruits", "ChooseRecruit", "ConfirmRecruits"}},
			{Type: AssertContiguous},
			{Type: AssertGrouped},
			{Type: AssertReplays},
		},
	}
}

func TestRun_ReplicasAgree(t *testing.T) {
	result, err := Run(twoPlayerScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Replicas, 2)
	assert.Equal(t, result.Replicas[0].Digest, result.Replicas[1].Digest)
	assert.Equal(t, result.Digest, result.Replicas[0].Digest)
	assert.Equal(t, ir.MustLogDigest(result.Log), result.Digest)
	assert.Equal(t, 0, result.Stats.FirstEphemeral)
	assert.Equal(t, 4, result.Stats.Finalized)
}

func TestRun_DefaultReplica(t *testing.T) {
	s := twoPlayerScenario()
	s.Replicas = nil

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass)
	require.Len(t, result.Replicas, 1)
	assert.Equal(t, "default", result.Replicas[0].Name)
}

func TestRun_FailedAssertion(t *testing.T) {
	s := twoPlayerScenario()
	s.Assertions = []Assertion{
		{Type: AssertCount, Op: "ChooseRecruit", Count: 3},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ChooseRecruit appears 3 times")
}

func TestRun_ContractFailure(t *testing.T) {
	s := &Scenario{
		Name:        "bad_kind",
		Description: "no rule for a buffered worker placement",
		Ephemeral: []MoveSpec{
			{Index: 0, Op: "PlaceWorker", Player: 0, Source: "p0/worker/0", Dest: "p0/active/1"},
		},
		Assertions: []Assertion{{Type: AssertError, Code: string(ir.ErrCodeUnknownEphemeralOp)}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.Failed())
	assert.Equal(t, ir.ErrCodeUnknownEphemeralOp, result.Code)
	assert.Empty(t, result.Digest)
	assert.Empty(t, result.Log)
}

func TestRun_UnexpectedContractFailure(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "failure without an error assertion",
		Ephemeral: []MoveSpec{
			{Index: 0, Op: "Resign", Player: 0},
		},
		Assertions: []Assertion{{Type: AssertContiguous}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "UNKNOWN_EPHEMERAL_OP")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	s := twoPlayerScenario()
	s.Assertions = []Assertion{{Type: AssertError, Code: string(ir.ErrCodeStrideOverflow)}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "canonicalization succeeded")
}

func TestRun_InvalidRules(t *testing.T) {
	s := twoPlayerScenario()
	players := 9
	s.Rules.Players = &players

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "players")
}

func TestRun_ReplaysFailure(t *testing.T) {
	s := &Scenario{
		Name:        "unreplayable",
		Description: "confirming with no active recruit cannot replay",
		Ephemeral:   []MoveSpec{confirmSpec(0, 0, 100)},
		Assertions:  []Assertion{{Type: AssertReplays}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "illegal move")
}
