package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/movelog/internal/ir"
)

// AppendMove inserts one permanent record at its index.
// Uses ON CONFLICT(session_id, idx) DO NOTHING for idempotency: re-appending
// a record already stored at that index is silently ignored.
//
// Returns whether a new row was inserted. Ephemeral records are rejected;
// they reach the store only through ReplaceLog after reconciliation.
func (s *Store) AppendMove(ctx context.Context, sessionID string, rec ir.MoveRecord) (bool, error) {
	if rec.Ephemeral {
		return false, fmt.Errorf("append move: %w",
			ir.NewContractError(ir.ErrCodeNonEphemeralPush, rec, "ephemeral records are not stored"))
	}

	result, err := insertMove(ctx, s.db, sessionID, rec)
	if err != nil {
		return false, fmt.Errorf("append move: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append move: rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceLog atomically replaces a session's stored log with records and
// records their digest.
//
// The delete, the inserts and the digest upsert share one transaction. If
// any step fails, the previous log stays in place.
func (s *Store) ReplaceLog(ctx context.Context, sessionID string, records []ir.MoveRecord) (string, error) {
	digest, err := ir.LogDigest(records)
	if err != nil {
		return "", fmt.Errorf("replace log: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("replace log: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM moves WHERE session_id = ?`, sessionID); err != nil {
		return "", fmt.Errorf("replace log: delete: %w", err)
	}

	for _, rec := range records {
		if rec.Ephemeral {
			return "", fmt.Errorf("replace log: %w",
				ir.NewContractError(ir.ErrCodeNonEphemeralPush, rec, "canonical log holds an ephemeral record"))
		}
		if _, err := insertMove(ctx, tx, sessionID, rec); err != nil {
			return "", fmt.Errorf("replace log: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO digests (session_id, digest, move_count, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			digest = excluded.digest,
			move_count = excluded.move_count,
			engine_version = excluded.engine_version,
			ir_version = excluded.ir_version
	`,
		sessionID,
		digest,
		len(records),
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return "", fmt.Errorf("replace log: digest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("replace log: commit: %w", err)
	}
	return digest, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMove(ctx context.Context, db execer, sessionID string, rec ir.MoveRecord) (sql.Result, error) {
	moveID, err := ir.MoveID(rec)
	if err != nil {
		return nil, err
	}

	return db.ExecContext(ctx, `
		INSERT INTO moves
		(session_id, idx, op, player, source, dest, elapsed_ms, move_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, idx) DO NOTHING
	`,
		sessionID,
		rec.Index,
		rec.Op.String(),
		int(rec.Player),
		string(rec.Source),
		string(rec.Dest),
		rec.Elapsed.Milliseconds(),
		moveID,
	)
}
