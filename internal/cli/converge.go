package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/convergence"
)

// ConvergeOptions holds flags for the converge command.
type ConvergeOptions struct {
	*RootOptions
	Session string
}

// NewConvergeCommand creates the converge command.
func NewConvergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Check that replicas agree on a session's log",
		Long: `Read the digests replicas published for a session and report whether
they agree.

Replicas publish the digest of their canonical log after every
reconciliation. The session has converged when every published digest is
the same.

Exit codes:
  0 - Converged
  1 - Replicas disagree, or none have published
  2 - Command error (registry unreachable, etc.)

Examples:
  movelog converge --session s1
  movelog converge --session s1 --config ./replica.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConverge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runConverge(opts *ConvergeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	client := newRedisClient(cfg)
	defer client.Close()

	report, err := convergence.Check(ctx, newRegistry(client, cfg), opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read digests", err)
	}

	var failed *CLIError
	switch {
	case report.Replicas == 0:
		failed = &CLIError{Code: ErrCodeDiverged, Message: "no replica has published a digest"}
	case !report.Converged:
		failed = &CLIError{
			Code:    ErrCodeDiverged,
			Message: fmt.Sprintf("%d distinct digests across %d replicas", len(report.ByDigest), report.Replicas),
		}
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		if err := f.Report(report, failed); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Session: %s\n", report.Session)
		digests := make([]string, 0, len(report.ByDigest))
		for d := range report.ByDigest {
			digests = append(digests, d)
		}
		slices.Sort(digests)
		for _, d := range digests {
			fmt.Fprintf(w, "  %s  %v\n", d, report.ByDigest[d])
		}
		if failed != nil {
			fmt.Fprintf(w, "Diverged: %s\n", failed.Message)
		} else {
			fmt.Fprintf(w, "Converged (%d replicas)\n", report.Replicas)
		}
	}

	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}
