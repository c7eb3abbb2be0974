package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
)

// CanonOptions holds flags for the canon command.
type CanonOptions struct {
	*RootOptions
	Input string
	Check bool // fail unless the input is already canonical
}

// CanonResult is the canonicalized log.
type CanonResult struct {
	Log     []ir.MoveRecord `json:"log"`
	Digest  string          `json:"digest"`
	Stats   history.Stats   `json:"stats"`
	Changed bool            `json:"changed"`
}

// NewCanonCommand creates the canon command.
func NewCanonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canon",
		Short: "Canonicalize a JSON move log",
		Long: `Canonicalize a JSON array of move records.

Records flagged ephemeral are merged into the permanent history exactly as a
replica does at the end of a simultaneous phase. The result and its digest
are printed. A log with no ephemeral records is returned unchanged.

Exit codes:
  0 - Canonicalized (or already canonical with --check)
  1 - Contract violation, or --check and the input was not canonical
  2 - Command error (unreadable input, malformed JSON, etc.)

Examples:
  movelog canon --input log.json
  movelog canon --input - --format json < log.json
  movelog canon --input log.json --check`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanon(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "JSON record list, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "exit 1 if the input is not already canonical")

	return cmd
}

func runCanon(opts *CanonOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	records, err := readRecords(opts.Input, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	r, err := opts.Rules()
	if err != nil {
		return err
	}

	out, stats, err := history.Canonicalize(history.NewLog(records...), nil, r.CanonOptions())
	if err != nil {
		_ = formatter.Error(ErrCodeContract, err.Error(), map[string]any{"code": ir.ContractCode(err)})
		return WrapExitError(ExitFailure, "canonicalization failed", err)
	}

	canonical := out.Records()
	before, err := ir.MarshalLog(records)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode input", err)
	}
	after, err := ir.MarshalLog(canonical)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode log", err)
	}

	result := CanonResult{
		Log:     canonical,
		Digest:  ir.MustLogDigest(canonical),
		Stats:   stats,
		Changed: !bytes.Equal(before, after),
	}
	formatter.VerboseLog("ephemeral=%d dropped=%d collapsed=%d finalized=%d",
		stats.Ephemeral, stats.Dropped, stats.Collapsed, stats.Finalized)

	var failed *CLIError
	if opts.Check && result.Changed {
		failed = &CLIError{Code: ErrCodeInput, Message: "input is not canonical"}
	}

	if opts.Format == "json" {
		if err := formatter.Report(result, failed); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, rec := range result.Log {
			fmt.Fprintln(w, rec)
		}
		fmt.Fprintf(w, "digest: %s\n", result.Digest)
		if failed != nil {
			fmt.Fprintln(w, "input is not canonical")
		}
	}

	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

// readRecords decodes a JSON record list from path, or from stdin for "-".
func readRecords(path string, stdin io.Reader) ([]ir.MoveRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var records []ir.MoveRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
