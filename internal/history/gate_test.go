package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/movelog/internal/ir"
)

func TestGate(t *testing.T) {
	done := map[ir.Player]bool{}
	gate := NewGate(PhaseStatusFunc(func(p ir.Player) bool { return done[p] }), 0, 1, 2)

	assert.False(t, gate.AllPhaseComplete())
	assert.Equal(t, []ir.Player{0, 1, 2}, gate.Pending())

	done[1] = true
	assert.True(t, gate.IsPhaseComplete(1))
	assert.Equal(t, []ir.Player{0, 2}, gate.Pending())

	done[0], done[2] = true, true
	assert.True(t, gate.AllPhaseComplete())
	assert.Empty(t, gate.Pending())
	assert.Equal(t, []ir.Player{0, 1, 2}, gate.Players())
}

func TestGate_NoPlayersIsOpen(t *testing.T) {
	gate := NewGate(PhaseStatusFunc(func(ir.Player) bool { return false }))
	assert.True(t, gate.AllPhaseComplete())
}

func TestPlayerTime(t *testing.T) {
	log := NewLog(
		at(perm(ir.OpChooseRecruit, 0, "a", "b", 0), 4*time.Second),
		at(perm(ir.OpChooseRecruit, 1, "c", "d", 1), 3*time.Second),
		at(perm(ir.OpConfirmRecruits, 1, "", "", 2), 9*time.Second),
		at(perm(ir.OpNormalStart, 0, "", "", 3), 9*time.Second),
		at(perm(ir.OpPlaceWorker, 0, "w", "mine", 4), 15*time.Second),
	)

	spent := PlayerTime(log)
	assert.Equal(t, 10*time.Second, spent[0])
	assert.Equal(t, 6*time.Second, spent[1])
}
