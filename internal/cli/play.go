package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/config"
	"github.com/roach88/movelog/internal/convergence"
	"github.com/roach88/movelog/internal/engine"
	"github.com/roach88/movelog/internal/ir"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Events   string
	Database string
	Session  string
	Publish  bool
	Verify   bool
}

// PlayEvent is one event in a play file.
type PlayEvent struct {
	Op        ir.OpKind   `json:"op"`
	Player    ir.Player   `json:"player"`
	Source    ir.Location `json:"source,omitempty"`
	Dest      ir.Location `json:"dest,omitempty"`
	Ephemeral bool        `json:"ephemeral,omitempty"`
	ElapsedMS int64       `json:"elapsed_ms,omitempty"`
	Remote    bool        `json:"remote,omitempty"`
	Index     int         `json:"index,omitempty"`
}

// Event converts to an engine event.
func (p PlayEvent) Event() engine.Event {
	return engine.Event{
		Op:        p.Op,
		Player:    p.Player,
		Source:    p.Source,
		Dest:      p.Dest,
		Ephemeral: p.Ephemeral,
		Elapsed:   time.Duration(p.ElapsedMS) * time.Millisecond,
		Remote:    p.Remote,
		Index:     p.Index,
	}
}

// PlayResult is the replica state after the events ran.
type PlayResult struct {
	Status engine.Status   `json:"status"`
	Log    []ir.MoveRecord `json:"log"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a replica over a file of move events",
		Long: `Run one replica over a JSON array of move events.

Events go through the replica's single-writer loop in file order. Illegal
moves are logged and skipped; contract violations and divergence stop the
replica. With --db the permanent log is persisted; with --publish the digest
of each canonical log is published to the Redis registry from the config.

Exit codes:
  0 - All events processed
  1 - The replica stopped on a fatal error
  2 - Command error (unreadable events, database error, etc.)

Examples:
  movelog play --events moves.json
  movelog play --events moves.json --db ./movelog.db --session s1
  movelog play --events moves.json --publish --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Events, "events", "", "JSON event list (required)")
	_ = cmd.MarkFlagRequired("events")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (default: new UUIDv7, or resume with --db)")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "publish log digests to the configured Redis")
	cmd.Flags().BoolVar(&opts.Verify, "verify", true, "replay each canonical log and compare boards")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	events, err := readEvents(opts.Events)
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	r, err := opts.Rules()
	if err != nil {
		return err
	}

	engOpts := []engine.Option{
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
		engine.WithReplicaName(cfg.Replica.Name),
		engine.WithVerify(opts.Verify),
	}
	if opts.Session != "" {
		engOpts = append(engOpts, engine.WithSession(opts.Session))
	}

	if opts.Database != "" {
		st, err := opts.OpenStore(opts.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		engOpts = append(engOpts, engine.WithStore(st))
	}

	if opts.Publish {
		client := newRedisClient(cfg)
		defer client.Close()
		engOpts = append(engOpts, engine.WithRegistry(newRegistry(client, cfg)))
	}

	eng := engine.New(r, engOpts...)
	if opts.Database != "" && opts.Session != "" {
		if err := eng.Resume(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to resume session", err)
		}
	}

	for _, ev := range events {
		eng.Enqueue(ev.Event())
	}
	eng.Stop()

	runErr := eng.Run(ctx)
	result := PlayResult{Status: eng.Status(), Log: eng.Records()}

	var failed *CLIError
	if runErr != nil {
		failed = &CLIError{Code: ErrCodeReplay, Message: runErr.Error()}
		if engine.IsDivergence(runErr) {
			failed.Code = ErrCodeDiverged
		} else if ir.IsContractError(runErr) {
			failed.Code = ErrCodeContract
		}
	}

	if opts.Format == "json" {
		if err := formatter.Report(result, failed); err != nil {
			return err
		}
	} else {
		outputPlayText(cmd, result, failed)
	}

	if failed != nil {
		return WrapExitError(ExitFailure, "replica stopped", runErr)
	}
	return nil
}

func outputPlayText(cmd *cobra.Command, result PlayResult, failed *CLIError) {
	w := cmd.OutOrStdout()
	s := result.Status

	fmt.Fprintf(w, "Session: %s (replica %s)\n", s.Session, s.Replica)
	for _, rec := range result.Log {
		fmt.Fprintf(w, "  %s\n", rec)
	}
	fmt.Fprintf(w, "Log: %d move(s), %d buffered\n", s.LogLen, s.Buffered)
	if len(s.Pending) > 0 {
		fmt.Fprintf(w, "Waiting on players: %v\n", s.Pending)
	}
	if s.LogDigest != "" {
		fmt.Fprintf(w, "Digest: %s\n", s.LogDigest)
	}
	if failed != nil {
		fmt.Fprintf(w, "Stopped [%s]: %s\n", failed.Code, failed.Message)
	}
}

func readEvents(path string) ([]PlayEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []PlayEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newRegistry(client *redis.Client, cfg *config.Config) *convergence.RedisRegistry {
	return convergence.NewRedisRegistry(client,
		convergence.WithKeyPrefix(cfg.Redis.KeyPrefix),
		convergence.WithTTL(cfg.Redis.TTL()),
	)
}
