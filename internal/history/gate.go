package history

import (
	"slices"

	"github.com/roach88/movelog/internal/ir"
)

// PhaseStatus answers whether a player has finished the simultaneous phase
// (for recruits: has reduced to the kept number and confirmed). The answer is
// derived from game state owned elsewhere; the gate never caches it.
type PhaseStatus interface {
	PhaseComplete(p ir.Player) bool
}

// PhaseStatusFunc adapts a function to PhaseStatus.
type PhaseStatusFunc func(p ir.Player) bool

// PhaseComplete implements PhaseStatus.
func (f PhaseStatusFunc) PhaseComplete(p ir.Player) bool {
	return f(p)
}

// Gate decides when the synchronous game may resume.
//
// Reconciliation must wait for AllPhaseComplete. Running it earlier would
// reconcile a buffer that stragglers are still pushing to.
type Gate struct {
	players []ir.Player
	status  PhaseStatus
}

// NewGate creates a gate over the given active players.
func NewGate(status PhaseStatus, players ...ir.Player) *Gate {
	return &Gate{players: slices.Clone(players), status: status}
}

// Players returns the active players.
func (g *Gate) Players() []ir.Player {
	return slices.Clone(g.players)
}

// IsPhaseComplete reports whether p has finished the phase.
func (g *Gate) IsPhaseComplete(p ir.Player) bool {
	return g.status.PhaseComplete(p)
}

// AllPhaseComplete reports whether every active player has finished.
// A gate with no active players is trivially open.
func (g *Gate) AllPhaseComplete() bool {
	for _, p := range g.players {
		if !g.status.PhaseComplete(p) {
			return false
		}
	}
	return true
}

// Pending returns the players still choosing, in seat order.
// Turn timers and UI gating read this.
func (g *Gate) Pending() []ir.Player {
	var pending []ir.Player
	for _, p := range g.players {
		if !g.status.PhaseComplete(p) {
			pending = append(pending, p)
		}
	}
	return pending
}
