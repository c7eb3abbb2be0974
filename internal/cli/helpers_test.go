package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/store"
)

// testRootOptions points the config at an empty file so tests never read
// the user's XDG config.
func testRootOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replica:\n  name: test\n"), 0644))
	return &RootOptions{Format: format, ConfigPath: path}
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func at(rec ir.MoveRecord, ms int64) ir.MoveRecord {
	rec.Elapsed = time.Duration(ms) * time.Millisecond
	return rec
}

// canonicalRecruitLog is the canonical log of two players each keeping one
// recruit, followed by the start of play.
func canonicalRecruitLog() []ir.MoveRecord {
	return []ir.MoveRecord{
		at(ir.MustMove(ir.OpChooseRecruit, 0, "p0/reserve/0", "p0/active/0", 0, false), 1000),
		at(ir.MustMove(ir.OpConfirmRecruits, 0, ir.NoLocation, ir.NoLocation, 1, false), 2000),
		at(ir.MustMove(ir.OpChooseRecruit, 1, "p1/reserve/1", "p1/active/0", 2, false), 1200),
		at(ir.MustMove(ir.OpConfirmRecruits, 1, ir.NoLocation, ir.NoLocation, 3, false), 2500),
		at(ir.MustMove(ir.OpNormalStart, 0, ir.NoLocation, ir.NoLocation, 4, false), 2500),
	}
}

// seedDatabase creates a database holding session s1 as a reconciled log.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "movelog.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.ReplaceLog(context.Background(), "s1", canonicalRecruitLog())
	require.NoError(t, err)
	return dbPath
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
