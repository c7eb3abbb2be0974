package rules

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Rules are the parameters of one game. Every replica of a session must
// load identical rules.
type Rules struct {
	Players          int   `json:"players" yaml:"players"`
	RecruitsDealt    int   `json:"recruits_dealt" yaml:"recruits_dealt"`
	RecruitsKept     int   `json:"recruits_kept" yaml:"recruits_kept"`
	Workers          int   `json:"workers" yaml:"workers"`
	EvaluationStride int64 `json:"evaluation_stride" yaml:"evaluation_stride"`

	// AutoStart appends NormalStart once the recruit phase completes.
	AutoStart bool `json:"auto_start" yaml:"auto_start"`

	// ConfirmsLast orders all choices ahead of all confirmations in the
	// canonical log. See history.Options.
	ConfirmsLast bool `json:"confirms_last" yaml:"confirms_last"`
}

// Default returns the two-player rules.
func Default() Rules {
	return Rules{
		Players:          2,
		RecruitsDealt:    2,
		RecruitsKept:     1,
		Workers:          2,
		EvaluationStride: history.DefaultEvaluationStride,
		AutoStart:        true,
	}
}

// Validate checks constraints that span fields.
func (r Rules) Validate() error {
	switch {
	case r.Players < 1 || r.Players > 6:
		return &RulesError{Field: "players", Message: fmt.Sprintf("must be 1..6, got %d", r.Players)}
	case r.RecruitsKept < 1:
		return &RulesError{Field: "recruits_kept", Message: "must be at least 1"}
	case r.RecruitsDealt < r.RecruitsKept:
		return &RulesError{
			Field:   "recruits_dealt",
			Message: fmt.Sprintf("%d dealt cannot cover %d kept", r.RecruitsDealt, r.RecruitsKept),
		}
	case r.Workers < 0:
		return &RulesError{Field: "workers", Message: "must not be negative"}
	case r.EvaluationStride <= 0:
		return &RulesError{Field: "evaluation_stride", Message: "must be positive"}
	}
	return nil
}

// Seats returns the players in seat order.
func (r Rules) Seats() []ir.Player {
	seats := make([]ir.Player, r.Players)
	for i := range seats {
		seats[i] = ir.Player(i)
	}
	return seats
}

// CanonOptions returns the canonicalization options these rules imply.
func (r Rules) CanonOptions() history.Options {
	return history.Options{Stride: r.EvaluationStride, ConfirmsLast: r.ConfirmsLast}
}

// RulesError reports an invalid rules file or value.
type RulesError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *RulesError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// rulesFile mirrors #Rules. Pointers tell absent fields from zero values.
type rulesFile struct {
	Players          *int   `json:"players"`
	RecruitsDealt    *int   `json:"recruits_dealt"`
	RecruitsKept     *int   `json:"recruits_kept"`
	Workers          *int   `json:"workers"`
	EvaluationStride *int64 `json:"evaluation_stride"`
	AutoStart        *bool  `json:"auto_start"`
	ConfirmsLast     *bool  `json:"confirms_last"`
}

// Load reads rules from a CUE file.
func Load(path string) (Rules, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles CUE source and extracts the `game` struct.
// filename is used in error positions only.
func Parse(filename string, src []byte) (Rules, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Rules{}, fmt.Errorf("compile rules schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Rules{}, formatCUEError(err)
	}

	game := v.LookupPath(cue.ParsePath("game"))
	if !game.Exists() {
		return Rules{}, &RulesError{Field: "game", Message: "game is required", Pos: v.Pos()}
	}

	checked := schema.LookupPath(cue.ParsePath("#Rules")).Unify(game)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return Rules{}, formatCUEError(err)
	}

	var raw rulesFile
	if err := checked.Decode(&raw); err != nil {
		return Rules{}, formatCUEError(err)
	}

	r := Default()
	setIf(&r.Players, raw.Players)
	setIf(&r.RecruitsDealt, raw.RecruitsDealt)
	setIf(&r.RecruitsKept, raw.RecruitsKept)
	setIf(&r.Workers, raw.Workers)
	setIf(&r.EvaluationStride, raw.EvaluationStride)
	setIf(&r.AutoStart, raw.AutoStart)
	setIf(&r.ConfirmsLast, raw.ConfirmsLast)

	if err := r.Validate(); err != nil {
		if re, ok := err.(*RulesError); ok {
			re.Pos = game.Pos()
		}
		return Rules{}, err
	}
	return r, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &RulesError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
