package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/movelog/internal/ir"
)

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string
	MoveCount int
	Digest    string // empty until the first ReplaceLog
}

// ReadLog returns a session's permanent log ordered by index.
//
// Returns an empty slice (not nil) if the session has no moves.
func (s *Store) ReadLog(ctx context.Context, sessionID string) ([]ir.MoveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, op, player, source, dest, elapsed_ms
		FROM moves
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	records := []ir.MoveRecord{}
	for rows.Next() {
		rec, err := scanMove(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return records, nil
}

// ReadDigest returns the digest and move count recorded by the last
// ReplaceLog for a session. Returns ErrSessionNotFound if there is none.
func (s *Store) ReadDigest(ctx context.Context, sessionID string) (string, int, error) {
	var (
		digest string
		count  int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, move_count FROM digests WHERE session_id = ?
	`, sessionID).Scan(&digest, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("read digest %q: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return "", 0, fmt.Errorf("read digest: %w", err)
	}
	return digest, count, nil
}

// ListSessions returns every session with stored moves or a digest,
// ordered by ID.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ids.session_id,
		       (SELECT COUNT(*) FROM moves m WHERE m.session_id = ids.session_id),
		       COALESCE(d.digest, '')
		FROM (
			SELECT session_id FROM moves
			UNION
			SELECT session_id FROM digests
		) ids
		LEFT JOIN digests d ON d.session_id = ids.session_id
		ORDER BY ids.session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.MoveCount, &info.Digest); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanMove(rows *sql.Rows) (ir.MoveRecord, error) {
	var (
		idx       int
		opName    string
		player    int
		src, dst  string
		elapsedMS int64
	)
	if err := rows.Scan(&idx, &opName, &player, &src, &dst, &elapsedMS); err != nil {
		return ir.MoveRecord{}, fmt.Errorf("scan move: %w", err)
	}

	op, err := ir.ParseOpKind(opName)
	if err != nil {
		return ir.MoveRecord{}, fmt.Errorf("scan move %d: %w", idx, err)
	}
	rec, err := ir.NewMove(op, ir.Player(player), ir.Location(src), ir.Location(dst), idx, false)
	if err != nil {
		return ir.MoveRecord{}, fmt.Errorf("scan move %d: %w", idx, err)
	}
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return rec, nil
}
