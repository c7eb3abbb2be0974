package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/movelog/internal/board"
	"github.com/roach88/movelog/internal/history"
)

// ErrNoStore is returned by Resume when the engine has no store.
var ErrNoStore = errors.New("engine has no store")

// Resume loads the session's stored log and rebuilds the board from it.
//
// The store only ever holds permanent records: plain moves appended as they
// happened and canonical logs written by reconciliation. Ephemeral moves of
// an unfinished phase are lost on restart and must be re-sent by their
// players, the same as moves still in flight on the network.
//
// Must be called before Run, on an engine that has processed nothing.
func (e *Engine) Resume(ctx context.Context) error {
	if e.store == nil {
		return ErrNoStore
	}

	records, err := e.store.ReadLog(ctx, e.session)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	b, err := board.Replay(e.rules, records)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	e.board = b
	e.log = history.NewLog(records...)
	e.buf = history.NewBuffer()
	e.canon.Gate = b.Gate()

	if len(records) > 0 {
		if _, ok := e.clock.(*Clock); ok {
			e.clock = NewClockAt(records[len(records)-1].Elapsed)
		}
	}

	e.logger.Info("resumed", "log_len", len(records), "started", b.Started())
	e.updateStatus("")
	return nil
}
