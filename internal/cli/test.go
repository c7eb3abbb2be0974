package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/harness"
	"github.com/roach88/movelog/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Digest string   `json:"digest,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run canonicalization scenarios with the conformance harness.

Each scenario is canonicalized once per replica arrival order. Replicas must
agree byte for byte and every assertion must hold. When
<scenarios-dir>/golden/<name>.golden exists the canonical outcome must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  movelog test ./scenarios
  movelog test ./scenarios --filter "recruit_*"
  movelog test ./scenarios --update
  movelog test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts)
		if opts.Format != "json" {
			printScenario(cmd, scenResult, opts.Update)
		}

		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files under dir, skipping the
// golden directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and checks its golden file.
func runScenario(scenarioFile string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(scenarioFile),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	out := ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Digest: result.Digest,
		Errors: result.Errors,
	}

	snapshot, err := ir.MarshalCanonical(harness.Snapshot(scenario.Name, result))
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to encode snapshot: %v", err))
		return out
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return out
	}

	golden, err := os.ReadFile(goldenPath)
	if errors.Is(err, fs.ErrNotExist) {
		// No golden file: assertions only.
		return out
	}
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return out
	}
	if !bytes.Equal(golden, snapshot) {
		out.Pass = false
		out.Errors = append(out.Errors, "canonical log does not match golden file (run with --update to regenerate)")
	}
	return out
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func printScenario(cmd *cobra.Command, r ScenarioResult, updated bool) {
	w := cmd.OutOrStdout()
	switch {
	case r.Pass && updated:
		fmt.Fprintf(w, "ok   %s (golden updated)\n", r.Name)
	case r.Pass:
		fmt.Fprintf(w, "ok   %s\n", r.Name)
	default:
		fmt.Fprintf(w, "FAIL %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	var failed *CLIError
	if result.Failed > 0 {
		failed = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := f.Report(result, failed); err != nil {
		return err
	}

	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "All scenarios passed")
	return nil
}
