package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/movelog/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLog returns a short canonical log.
func createTestLog() []ir.MoveRecord {
	recs := []ir.MoveRecord{
		ir.MustMove(ir.OpChooseRecruit, 0, "p0/reserve/0", "p0/active/0", 0, false),
		ir.MustMove(ir.OpConfirmRecruits, 0, ir.NoLocation, ir.NoLocation, 1, false),
		ir.MustMove(ir.OpChooseRecruit, 1, "p1/reserve/1", "p1/active/0", 2, false),
		ir.MustMove(ir.OpConfirmRecruits, 1, ir.NoLocation, ir.NoLocation, 3, false),
		ir.MustMove(ir.OpNormalStart, 0, ir.NoLocation, ir.NoLocation, 4, false),
	}
	for i := range recs {
		recs[i].Elapsed = time.Duration(i+1) * 1500 * time.Millisecond
	}
	return recs
}
