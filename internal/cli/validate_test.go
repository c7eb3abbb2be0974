package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_RequiresArg(t *testing.T) {
	cmd := NewValidateCommand(testRootOptions(t, "text"))
	_, err := execute(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateCommand_Valid(t *testing.T) {
	path := writeFile(t, "rules.cue", "game: {\n\tplayers: 3\n\tconfirms_last: true\n}\n")
	cmd := NewValidateCommand(testRootOptions(t, "text"))

	out, err := execute(cmd, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Rules valid")
	assert.Contains(t, out, "players:           3")
	assert.Contains(t, out, "confirms last:     true")
}

func TestValidateCommand_ValidJSON(t *testing.T) {
	path := writeFile(t, "rules.cue", "game: players: 4\n")
	cmd := NewValidateCommand(testRootOptions(t, "json"))

	out, err := execute(cmd, path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Rules)
	assert.Equal(t, 4, resp.Data.Rules.Players)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := writeFile(t, "rules.cue", "game: players: 9\n")

	t.Run("text", func(t *testing.T) {
		cmd := NewValidateCommand(testRootOptions(t, "text"))
		out, err := execute(cmd, path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "Validation failed")
		assert.Contains(t, out, "players")
	})

	t.Run("json", func(t *testing.T) {
		cmd := NewValidateCommand(testRootOptions(t, "json"))
		out, err := execute(cmd, path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp struct {
			Status string           `json:"status"`
			Data   ValidationResult `json:"data"`
			Error  *CLIError        `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.False(t, resp.Data.Valid)
		require.Len(t, resp.Data.Errors, 1)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeRules, resp.Error.Code)
	})
}

func TestValidateCommand_MissingGame(t *testing.T) {
	path := writeFile(t, "rules.cue", "players: 2\n")
	cmd := NewValidateCommand(testRootOptions(t, "text"))

	out, err := execute(cmd, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "game: game is required")
}

func TestValidateCommand_NotFound(t *testing.T) {
	cmd := NewValidateCommand(testRootOptions(t, "text"))

	_, err := execute(cmd, "/nonexistent/rules.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
