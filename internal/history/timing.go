package history

import (
	"time"

	"github.com/roach88/movelog/internal/ir"
)

// PlayerTime attributes game-clock time to players.
//
// Each record is charged the elapsed delta since the record before it. The
// synthetic NormalStart record is excluded: its timing is forced during
// canonicalization and does not belong to any player.
func PlayerTime(log *Log) map[ir.Player]time.Duration {
	spent := make(map[ir.Player]time.Duration)
	var prev time.Duration
	for _, rec := range log.All() {
		delta := rec.Elapsed - prev
		prev = rec.Elapsed
		if rec.Op == ir.OpNormalStart || delta <= 0 {
			continue
		}
		spent[rec.Player] += delta
	}
	return spent
}
