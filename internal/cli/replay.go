package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/board"
	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/rules"
	"github.com/roach88/movelog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string `json:"session"`
	Moves         int    `json:"moves"`
	LogDigest     string `json:"log_digest"`
	StoredDigest  string `json:"stored_digest,omitempty"`
	StateDigest   string `json:"state_digest,omitempty"`
	Deterministic bool   `json:"deterministic"`
	DigestMatch   bool   `json:"digest_match"`
	Idempotent    bool   `json:"idempotent"`
	Error         string `json:"error,omitempty"`
}

// OK reports whether every check passed.
func (r ReplaySessionResult) OK() bool {
	return r.Error == "" && r.Deterministic && r.DigestMatch && r.Idempotent
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllVerified   bool                  `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored logs and verify them",
		Long: `Replay stored move logs and verify them.

For each session the log is read twice and replayed onto a fresh board both
times; the two board digests must agree. The log digest must match the digest
recorded by the last reconciliation, and canonicalizing the stored log again
must leave it unchanged.

Exit codes:
  0 - All sessions verified
  1 - Verification failed
  2 - Command error (database not found, etc.)

Examples:
  movelog replay --db ./movelog.db
  movelog replay --db ./movelog.db --session 0190a6c2-...
  movelog replay --db ./movelog.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from the config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := opts.Rules()
	if err != nil {
		return err
	}

	st, err := opts.OpenStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []string
	if opts.Session != "" {
		sessions = []string{opts.Session}
	} else {
		infos, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, info := range infos {
			sessions = append(sessions, info.ID)
		}
	}

	result := ReplayResult{
		Sessions:      make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions: len(sessions),
		AllVerified:   true,
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	for _, session := range sessions {
		sr, err := replayAndVerifySession(ctx, st, r, session)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", session), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.OK() {
			result.AllVerified = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifySession replays one session twice and checks its digests.
// Storage errors are returned; verification failures are recorded on the
// result.
func replayAndVerifySession(ctx context.Context, st *store.Store, r rules.Rules, session string) (ReplaySessionResult, error) {
	first, err := st.ReadLog(ctx, session)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first read failed: %w", err)
	}
	second, err := st.ReadLog(ctx, session)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second read failed: %w", err)
	}

	logDigest, err := ir.LogDigest(first)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	out := ReplaySessionResult{
		Session:   session,
		Moves:     len(first),
		LogDigest: logDigest,
	}

	stateA, errA := replayState(r, first)
	stateB, errB := replayState(r, second)
	switch {
	case errA != nil:
		out.Error = errA.Error()
	case errB != nil:
		out.Error = errB.Error()
	default:
		out.StateDigest = stateA
		out.Deterministic = stateA == stateB
	}

	stored, count, err := st.ReadDigest(ctx, session)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		// Never reconciled: nothing to compare against.
		out.DigestMatch = true
	case err != nil:
		return ReplaySessionResult{}, err
	default:
		out.StoredDigest = stored
		out.DigestMatch = stored == logDigest && count == len(first)
	}

	again, _, err := history.Canonicalize(history.NewLog(first...), nil, r.CanonOptions())
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}
	againDigest, err := again.Digest()
	if err != nil {
		return ReplaySessionResult{}, err
	}
	out.Idempotent = againDigest == logDigest

	return out, nil
}

func replayState(r rules.Rules, records []ir.MoveRecord) (string, error) {
	b, err := board.Replay(r, records)
	if err != nil {
		return "", err
	}
	return b.Digest()
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	var failed *CLIError
	if !result.AllVerified {
		failed = &CLIError{
			Code:    ErrCodeReplay,
			Message: "replay verification failed",
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

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "ok  "
		if !s.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s Session: %s (%d moves)\n", status, s.Session, s.Moves)

		if verbose {
			fmt.Fprintf(w, "  Log digest:    %s\n", s.LogDigest)
			fmt.Fprintf(w, "  Stored digest: %s\n", s.StoredDigest)
			fmt.Fprintf(w, "  State digest:  %s\n", s.StateDigest)
		}
		if s.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", s.Error)
		}
		if s.Error == "" && !s.Deterministic {
			fmt.Fprintln(w, "  Warning: replays produced different boards")
		}
		if !s.DigestMatch {
			fmt.Fprintln(w, "  Warning: log does not match the stored digest")
		}
		if s.Error == "" && !s.Idempotent {
			fmt.Fprintln(w, "  Warning: stored log is not canonical")
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "All sessions verified")
		return nil
	}

	fmt.Fprintln(w, "Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
