package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/movelog/internal/board"
	"github.com/roach88/movelog/internal/convergence"
	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/rules"
	"github.com/roach88/movelog/internal/store"
)

// Engine is one replica's single-writer event loop.
//
// CRITICAL: All mutations happen in the goroutine that calls Run (or
// Process). External callers use Enqueue() to submit moves.
//
// Thread-safety model:
//   - Enqueue(), Status(), Session(): safe from any goroutine
//   - Run(), Process(), Resume(), Records(): one goroutine only
type Engine struct {
	rules   rules.Rules
	board   *board.Board
	log     *history.Log
	buf     *history.Buffer
	canon   *history.Canonicalizer
	queue   *eventQueue
	clock   GameClock
	logger  *slog.Logger
	store   *store.Store
	reg     convergence.Registry
	gen     SessionGenerator
	session string
	replica string
	verify  bool

	statusMu sync.Mutex
	status   Status
}

// Status is a snapshot of a replica, safe to read from any goroutine.
type Status struct {
	Session   string      `json:"session"`
	Replica   string      `json:"replica"`
	LogLen    int         `json:"log_len"`
	Buffered  int         `json:"buffered"`
	Pending   []ir.Player `json:"pending"` // players still choosing
	Started   bool        `json:"started"`
	LogDigest string      `json:"log_digest,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists permanent moves and canonical logs.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithRegistry publishes the canonical log digest after each reconciliation.
func WithRegistry(reg convergence.Registry) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}

// WithSession joins an existing session instead of generating a new ID.
func WithSession(id string) Option {
	return func(e *Engine) {
		e.session = id
	}
}

// WithSessionGenerator overrides UUIDv7Generator for new sessions.
func WithSessionGenerator(gen SessionGenerator) Option {
	return func(e *Engine) {
		e.gen = gen
	}
}

// WithReplicaName names this replica in logs and in the registry.
func WithReplicaName(name string) Option {
	return func(e *Engine) {
		e.replica = name
	}
}

// WithVerify replays every canonical log from scratch and compares the
// result with the live board. A mismatch stops the replica.
func WithVerify(verify bool) Option {
	return func(e *Engine) {
		e.verify = verify
	}
}

// WithClock overrides the wall-backed game clock.
func WithClock(c GameClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates a replica for a fresh board.
func New(r rules.Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:   r,
		board:   board.New(r),
		log:     history.NewLog(),
		buf:     history.NewBuffer(),
		queue:   newEventQueue(),
		gen:     UUIDv7Generator{},
		replica: "local",
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = NewClock()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.session == "" {
		e.session = e.gen.Generate()
	}
	e.canon = &history.Canonicalizer{Options: r.CanonOptions(), Gate: e.board.Gate()}
	e.logger = e.logger.With("session", e.session, "replica", e.replica)

	e.updateStatus("")
	return e
}

// Session returns the session ID.
func (e *Engine) Session() string {
	return e.session
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the number of events waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer event loop.
// Blocks until the context is cancelled, Stop() is called, or a fatal error
// occurs.
//
// ERROR HANDLING: an illegal move is logged with full event context and
// processing continues; the move simply never happened. Contract violations
// and runtime errors (divergence, persistence) are returned: the replica's
// history can no longer be trusted.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		ev, ok := e.queue.TryDequeue()
		if ok {
			if err := e.Process(ctx, ev); err != nil {
				if isFatal(err) {
					e.logger.Error("engine stopping: fatal error", "error", err)
					e.queue.Close()
					return err
				}
				logEventError(e.logger, ev, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// A wakeup can be stale: the loop may already have taken the
			// event it announced.
			if e.queue.Drained() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return once drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Process handles one event synchronously.
// Must not be called concurrently with Run.
func (e *Engine) Process(ctx context.Context, ev Event) error {
	rec, err := e.stamp(ev)
	if err != nil {
		return err
	}

	if err := e.board.Apply(rec); err != nil {
		return fmt.Errorf("process %s: %w", rec, err)
	}

	if rec.Ephemeral {
		if err := e.buf.Push(rec); err != nil {
			return err
		}
		e.logger.Debug("buffered ephemeral move", "move", rec.String(), "buffered", e.buf.Len())
	} else {
		e.log.Append(rec)
		if err := e.persistMove(ctx, rec); err != nil {
			return err
		}
		e.logger.Debug("appended move", "move", rec.String(), "log_len", e.log.Len())
	}

	return e.maybeReconcile(ctx)
}

// stamp turns an event into a record. Local moves are numbered after
// everything this replica has seen.
func (e *Engine) stamp(ev Event) (ir.MoveRecord, error) {
	index := ev.Index
	if !ev.Remote {
		index = e.log.Len() + e.buf.Len()
	}

	rec, err := ir.NewMove(ev.Op, ev.Player, ev.Source, ev.Dest, index, ev.IsEphemeral())
	if err != nil {
		return ir.MoveRecord{}, err
	}

	rec.Elapsed = ev.Elapsed
	if !ev.Remote && rec.Elapsed == 0 {
		rec.Elapsed = e.clock.Elapsed()
	}
	return rec, nil
}

// maybeReconcile closes the simultaneous phase once the gate opens.
func (e *Engine) maybeReconcile(ctx context.Context) error {
	if e.buf.Len() == 0 && !e.log.HasEphemeral() {
		e.updateStatus("")
		return nil
	}
	if !e.canon.Gate.AllPhaseComplete() {
		e.updateStatus("")
		return nil
	}

	// Reconcile a candidate log so a failed pass leaves both the log and
	// the board as they were.
	candidate := e.log.Clone()
	var start *ir.MoveRecord
	if e.rules.AutoStart && !e.board.Started() {
		rec := ir.MustMove(ir.OpNormalStart, 0, ir.NoLocation, ir.NoLocation, e.log.Len()+e.buf.Len(), false)
		rec.Elapsed = e.clock.Elapsed()
		candidate.Append(rec)
		start = &rec
	}

	stats, err := e.canon.Reconcile(candidate, e.buf)
	if errors.Is(err, history.ErrPhaseIncomplete) {
		return nil
	}
	if err != nil {
		return &RuntimeError{
			Code:    ErrCodeReconcileFailed,
			Message: "reconciliation aborted",
			Session: e.session,
			Err:     err,
		}
	}

	if start != nil {
		if err := e.board.Apply(*start); err != nil {
			return fmt.Errorf("normal start: %w", err)
		}
	}
	e.log = candidate

	records := e.log.Records()
	digest, err := e.persistLog(ctx, records)
	if err != nil {
		return err
	}

	e.logger.Info("reconciled",
		"ephemeral", stats.Ephemeral,
		"dropped", stats.Dropped,
		"collapsed", stats.Collapsed,
		"finalized", stats.Finalized,
		"log_len", len(records),
		"digest", digest,
	)

	if e.verify {
		if err := e.verifyReplay(records); err != nil {
			return err
		}
	}

	if e.reg != nil {
		// The registry is an outside observer; failing to publish never
		// affects this replica's history.
		if err := e.reg.Publish(ctx, e.session, e.replica, digest); err != nil {
			e.logger.Warn("digest publish failed", "error", err)
		}
	}

	e.updateStatus(digest)
	return nil
}

func (e *Engine) persistMove(ctx context.Context, rec ir.MoveRecord) error {
	if e.store == nil {
		return nil
	}
	if _, err := e.store.AppendMove(ctx, e.session, rec); err != nil {
		return &RuntimeError{
			Code:    ErrCodePersistFailed,
			Message: fmt.Sprintf("append move %d", rec.Index),
			Session: e.session,
			Err:     err,
		}
	}
	return nil
}

func (e *Engine) persistLog(ctx context.Context, records []ir.MoveRecord) (string, error) {
	if e.store == nil {
		return ir.LogDigest(records)
	}
	digest, err := e.store.ReplaceLog(ctx, e.session, records)
	if err != nil {
		return "", &RuntimeError{
			Code:    ErrCodePersistFailed,
			Message: "replace canonical log",
			Session: e.session,
			Err:     err,
		}
	}
	return digest, nil
}

func (e *Engine) verifyReplay(records []ir.MoveRecord) error {
	replayed, err := board.Replay(e.rules, records)
	if err != nil {
		return &RuntimeError{
			Code:    ErrCodeDivergence,
			Message: "canonical log does not replay",
			Session: e.session,
			Err:     err,
		}
	}

	live, err := e.board.Digest()
	if err != nil {
		return err
	}
	got, err := replayed.Digest()
	if err != nil {
		return err
	}
	if live != got {
		return NewDivergenceError(e.session, live, got)
	}
	return nil
}

// Records returns the current log.
// Call from the goroutine that runs the engine, or after Run returns.
func (e *Engine) Records() []ir.MoveRecord {
	return e.log.Records()
}

// Board returns the live board.
// Call from the goroutine that runs the engine, or after Run returns.
func (e *Engine) Board() *board.Board {
	return e.board
}

// Status returns the latest snapshot.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	s := e.status
	s.Pending = append([]ir.Player(nil), e.status.Pending...)
	return s
}

func (e *Engine) updateStatus(digest string) {
	s := Status{
		Session:  e.session,
		Replica:  e.replica,
		LogLen:   e.log.Len(),
		Buffered: e.buf.Len(),
		Pending:  e.canon.Gate.Pending(),
		Started:  e.board.Started(),
	}

	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	s.LogDigest = digest
	if digest == "" {
		s.LogDigest = e.status.LogDigest
	}
	e.status = s
}

// isFatal reports whether err means the replica's history is untrustworthy.
func isFatal(err error) bool {
	return IsRuntimeError(err) || ir.IsContractError(err)
}

// logEventError logs a failed event with enough context to replay it by hand.
func logEventError(logger *slog.Logger, ev Event, err error) {
	logger.Error("event processing failed",
		"error", err,
		"op", ev.Op.String(),
		"player", int(ev.Player),
		"source", string(ev.Source),
		"dest", string(ev.Dest),
		"remote", ev.Remote,
		"index", ev.Index,
	)
}
