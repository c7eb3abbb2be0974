package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// the outcome against its golden file.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRecruitScenario_DigestStable(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/recruit_two_players.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	for _, r := range result.Replicas {
		assert.Equal(t, "d32aae6f534712613977b34e029f4fec34b057d3af17ceb0c1133b99fcd3e422", r.Digest, r.Name)
	}
	assert.Equal(t, 2, result.Stats.Dropped)
}

func TestSnapshot_Error(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/stride_overflow.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	snap := Snapshot(scenario.Name, result)
	assert.Contains(t, snap, "error")
	assert.NotContains(t, snap, "log")
	assert.NotContains(t, snap, "digest")
}
