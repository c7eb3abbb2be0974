package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
)

var shortUnits = mustDecodeUnits("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// mustDecodeUnits is like durafmt.DefaultUnitsCoder.Decode but panics on error.
func mustDecodeUnits(s string) durafmt.Units {
	units, err := durafmt.DefaultUnitsCoder.Decode(s)
	if err != nil {
		panic(fmt.Sprintf("decode duration units %q: %v", s, err))
	}
	return units
}

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Player   int // optional - filter to one player, -1 for all
}

// TraceEntry is one move in the timeline.
type TraceEntry struct {
	Index     int    `json:"index"`
	Op        string `json:"op"`
	Player    int    `json:"player"`
	Source    string `json:"source,omitempty"`
	Dest      string `json:"dest,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
}

// PlayerTime is the game-clock time charged to one player.
type PlayerTime struct {
	Player int    `json:"player"`
	MS     int64  `json:"ms"`
	Human  string `json:"human"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  string         `json:"session"`
	Timeline []TraceEntry   `json:"timeline"`
	Time     []PlayerTime   `json:"time"`
	Ops      map[string]int `json:"ops"`
	Digest   string         `json:"digest"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the move timeline of a session",
		Long: `Show the stored move log of a session as a timeline.

The output includes:
- Timeline: every permanent move with its game-clock time
- Time: game-clock time charged to each player
- Ops: how often each operation kind occurs

Examples:
  movelog trace --db ./movelog.db --session s1
  movelog trace --db ./movelog.db --session s1 --player 0
  movelog trace --db ./movelog.db --session s1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from the config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (required)")
	cmd.Flags().IntVar(&opts.Player, "player", -1, "only show this player's moves")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := opts.OpenStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ReadLog(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	if len(records) == 0 {
		if opts.Format == "json" {
			f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
			return f.Success(TraceResult{Session: opts.Session, Timeline: []TraceEntry{}, Time: []PlayerTime{}, Ops: map[string]int{}})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No moves found for session: %s\n", opts.Session)
		return nil
	}

	result, err := buildTrace(opts.Session, records, opts.Player)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build trace", err)
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(result)
	}
	outputTraceText(cmd, result)
	return nil
}

// buildTrace assembles the timeline. player < 0 keeps every player.
func buildTrace(session string, records []ir.MoveRecord, player int) (TraceResult, error) {
	digest, err := ir.LogDigest(records)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		Session:  session,
		Timeline: make([]TraceEntry, 0, len(records)),
		Ops:      make(map[string]int),
		Digest:   digest,
	}

	for _, rec := range records {
		if player >= 0 && int(rec.Player) != player {
			continue
		}
		result.Ops[rec.Op.String()]++
		result.Timeline = append(result.Timeline, TraceEntry{
			Index:     rec.Index,
			Op:        rec.Op.String(),
			Player:    int(rec.Player),
			Source:    string(rec.Source),
			Dest:      string(rec.Dest),
			ElapsedMS: rec.Elapsed.Milliseconds(),
			Elapsed:   formatDuration(rec.Elapsed),
		})
	}

	spent := history.PlayerTime(history.NewLog(records...))
	players := make([]ir.Player, 0, len(spent))
	for p := range spent {
		players = append(players, p)
	}
	slices.Sort(players)
	result.Time = make([]PlayerTime, 0, len(players))
	for _, p := range players {
		if player >= 0 && int(p) != player {
			continue
		}
		result.Time = append(result.Time, PlayerTime{
			Player: int(p),
			MS:     spent[p].Milliseconds(),
			Human:  formatDuration(spent[p]),
		})
	}

	return result, nil
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session: %s\n", result.Session)
	fmt.Fprintf(w, "Digest:  %s\n", result.Digest)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		loc := ""
		if e.Source != "" || e.Dest != "" {
			loc = fmt.Sprintf(" %s -> %s", e.Source, e.Dest)
		}
		fmt.Fprintf(w, "  %-8s %s move  P%d %s%s\n",
			e.Elapsed, humanize.Ordinal(e.Index+1), e.Player, e.Op, loc)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Time:")
	for _, pt := range result.Time {
		fmt.Fprintf(w, "  P%d  %s\n", pt.Player, pt.Human)
	}
	fmt.Fprintln(w)

	ops := make([]string, 0, len(result.Ops))
	for op := range result.Ops {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	fmt.Fprintf(w, "Moves: %s\n", humanize.Comma(int64(len(result.Timeline))))
	for _, op := range ops {
		fmt.Fprintf(w, "  %-16s %s\n", op, humanize.Comma(int64(result.Ops[op])))
	}
}
