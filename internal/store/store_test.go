package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		if i == 0 {
			if _, err := s.ReplaceLog(t.Context(), "s1", createTestLog()); err != nil {
				t.Fatalf("ReplaceLog() failed: %v", err)
			}
		}

		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM moves").Scan(&count); err != nil {
			t.Fatalf("iteration %d: count failed: %v", i, err)
		}
		if count != 5 {
			t.Errorf("iteration %d: %d moves, want 5", i, count)
		}
		s.Close()
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}

func TestClose(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close() on empty store failed: %v", err)
	}

	s := createTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	// sql.DB tolerates a second close.
	_ = s.Close()
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table string
		want  []string
	}{
		{"moves", []string{"id", "session_id", "idx", "op", "player", "source", "dest", "elapsed_ms", "move_id"}},
		{"digests", []string{"session_id", "digest", "move_count", "engine_version", "ir_version"}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			columns := tableColumns(t, s.db, tt.table)
			for _, col := range tt.want {
				if !slices.Contains(columns, col) {
					t.Errorf("%s table missing column %q", tt.table, col)
				}
			}
		})
	}
}

func TestSchema_UniqueIndexPerSession(t *testing.T) {
	s := createTestStore(t)

	insert := `
		INSERT INTO moves (session_id, idx, op, player, elapsed_ms, move_id)
		VALUES (?, 0, 'Done', 0, 0, ?)
	`
	if _, err := s.db.Exec(insert, "s1", "m1"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert, "s1", "m2"); err == nil {
		t.Error("expected UNIQUE constraint violation, got nil")
	}
	if _, err := s.db.Exec(insert, "s2", "m1"); err != nil {
		t.Errorf("same index in another session should succeed: %v", err)
	}
}

func TestMigrate_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	version, err := s.pragma("user_version")
	if err != nil {
		t.Fatal(err)
	}
	if version != "1" {
		t.Errorf("user_version = %s, want %d", version, currentSchemaVersion)
	}

	if !slices.Contains(tableIndexes(t, s.db, "moves"), "idx_moves_move_id") {
		t.Error("idx_moves_move_id missing after migration")
	}
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info for %q: %v", table, err)
	}
	defer rows.Close()
	return scanNames(t, rows)
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_index_list(?)", table)
	if err != nil {
		t.Fatalf("index list for %q: %v", table, err)
	}
	defer rows.Close()
	return scanNames(t, rows)
}

func scanNames(t *testing.T, rows *sql.Rows) []string {
	t.Helper()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	return names
}
