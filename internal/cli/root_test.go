package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "movelog", cmd.Use)
	assert.Contains(t, cmd.Long, "byte-identical")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"canon", "play", "test", "replay", "trace", "validate", "converge"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"canon", []string{"input"}},
		{"play", []string{"events"}},
		{"trace", []string{"session"}},
		{"converge", []string{"session"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				flag := sub.Flags().Lookup(name)
				require.NotNil(t, flag, "--%s", name)
				assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "rules.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootOptions_Rules(t *testing.T) {
	opts := testRootOptions(t, "text")
	r, err := opts.Rules()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Players)

	rulesPath := writeFile(t, "three.cue", "game: players: 3\n")
	cfgPath := writeFile(t, "config.yaml", "rules: "+rulesPath+"\n")
	opts = &RootOptions{Format: "text", ConfigPath: cfgPath}
	r, err = opts.Rules()
	require.NoError(t, err)
	assert.Equal(t, 3, r.Players)
}

func TestRootOptions_MissingConfig(t *testing.T) {
	opts := &RootOptions{Format: "text", ConfigPath: "/nonexistent/config.yaml"}
	_, err := opts.Config()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
