package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions, kept in PRAGMA user_version:
// 0 - moves and digests tables
// 1 - index on moves.move_id
const currentSchemaVersion = 1

// ErrSessionNotFound is returned when a session has no committed digest.
var ErrSessionNotFound = errors.New("session not found")

// Store persists the permanent move logs of any number of sessions.
type Store struct {
	db *sql.DB
}

// sqlitePragmas are applied to every connection the store opens.
// WAL lets replay and trace read while a replica writes.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Open opens the database at path, creating it if needed, and brings its
// schema up to date. Opening an existing database is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// One connection: sqlite has a single writer, and the pragmas above are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates the tables and applies every migration newer than the
// database's user_version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	migrations := []func(*sql.DB) error{
		indexMoveIDs, // 0 -> 1
	}
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// indexMoveIDs indexes moves by content ID so a move can be found across
// sessions and after a reindex.
func indexMoveIDs(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_moves_move_id ON moves(move_id)`)
	return err
}

// pragma reads a pragma's current value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
