package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/store"
)

// recruitEvents plays both players through the recruit phase. The leading
// confirmation is illegal because nothing has been chosen yet.
const recruitEvents = `[
  {"op": "EphemeralConfirmOneRecruit", "player": 0, "elapsed_ms": 100},
  {"op": "EphemeralChooseRecruit", "player": 0, "source": "p0/reserve/0", "dest": "p0/active/0", "elapsed_ms": 1000},
  {"op": "EphemeralConfirmOneRecruit", "player": 0, "elapsed_ms": 2000},
  {"op": "EphemeralChooseRecruit", "player": 1, "source": "p1/reserve/1", "dest": "p1/active/0", "elapsed_ms": 1200},
  {"op": "EphemeralConfirmOneRecruit", "player": 1, "elapsed_ms": 2500}
]`

func TestPlayCommand_RequiresEvents(t *testing.T) {
	cmd := NewPlayCommand(testRootOptions(t, "text"))
	_, err := execute(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestPlayCommand_Text(t *testing.T) {
	events := writeFile(t, "events.json", recruitEvents)
	cmd := NewPlayCommand(testRootOptions(t, "text"))

	out, err := execute(cmd, "--events", events, "--session", "s1")
	require.NoError(t, err)

	assert.Contains(t, out, "Session: s1 (replica test)")
	assert.Contains(t, out, "P0 ChooseRecruit p0/reserve/0->p0/active/0")
	assert.Contains(t, out, "P1 ConfirmRecruits")
	assert.Contains(t, out, "#4 P0 NormalStart")
	assert.Contains(t, out, "Log: 5 move(s), 0 buffered")
	assert.Contains(t, out, "Digest: ")
	assert.NotContains(t, out, "Waiting on players")
}

func TestPlayCommand_JSON(t *testing.T) {
	events := writeFile(t, "events.json", recruitEvents)
	cmd := NewPlayCommand(testRootOptions(t, "json"))

	out, err := execute(cmd, "--events", events, "--session", "s1")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s1", resp.Data.Status.Session)
	assert.True(t, resp.Data.Status.Started)
	require.Len(t, resp.Data.Log, 5)
	assert.Equal(t, ir.MustLogDigest(resp.Data.Log), resp.Data.Status.LogDigest)
}

func TestPlayCommand_PhaseStillOpen(t *testing.T) {
	events := writeFile(t, "events.json", `[
  {"op": "EphemeralChooseRecruit", "player": 0, "source": "p0/reserve/0", "dest": "p0/active/0", "elapsed_ms": 1000},
  {"op": "EphemeralConfirmOneRecruit", "player": 0, "elapsed_ms": 2000}
]`)
	cmd := NewPlayCommand(testRootOptions(t, "text"))

	out, err := execute(cmd, "--events", events, "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Log: 0 move(s), 2 buffered")
	assert.Contains(t, out, "Waiting on players: [1]")
}

func TestPlayCommand_PersistsAndResumes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "movelog.db")
	events := writeFile(t, "events.json", recruitEvents)

	cmd := NewPlayCommand(testRootOptions(t, "text"))
	_, err := execute(cmd, "--events", events, "--db", dbPath, "--session", "s1")
	require.NoError(t, err)

	more := writeFile(t, "more.json",
		`[{"op": "PlaceWorker", "player": 0, "source": "p0/worker/0", "dest": "mine", "elapsed_ms": 4000}]`)
	cmd = NewPlayCommand(testRootOptions(t, "text"))
	out, err := execute(cmd, "--events", more, "--db", dbPath, "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "#5 P0 PlaceWorker p0/worker/0->mine")
	assert.Contains(t, out, "Log: 6 move(s), 0 buffered")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ReadLog(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

func TestPlayCommand_BadEvents(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cmd := NewPlayCommand(testRootOptions(t, "text"))
		_, err := execute(cmd, "--events", "/nonexistent/events.json")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown op", func(t *testing.T) {
		events := writeFile(t, "events.json", `[{"op": "Teleport", "player": 0}]`)
		cmd := NewPlayCommand(testRootOptions(t, "text"))
		_, err := execute(cmd, "--events", events)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}
