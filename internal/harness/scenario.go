package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/rules"
)

// Scenario defines a conformance test scenario.
// A scenario describes one reconciliation: the log as it stood when the
// phase ended, the buffered ephemeral moves, and the orders in which each
// replica received them.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules override the default game rules.
	Rules RulesOverride `yaml:"rules,omitempty"`

	// Log is the move history before reconciliation. Entries flagged
	// ephemeral are moves that were spliced in before being finalized.
	Log []MoveSpec `yaml:"log,omitempty"`

	// Ephemeral holds the buffered moves. Every entry is ephemeral.
	Ephemeral []MoveSpec `yaml:"ephemeral"`

	// Replicas lists the arrival orders to canonicalize under. Each order is
	// a permutation of the Ephemeral positions. Defaults to one replica
	// receiving them as written.
	Replicas []Replica `yaml:"replicas,omitempty"`

	// Assertions validate the canonical log.
	Assertions []Assertion `yaml:"assertions"`
}

// RulesOverride carries the rules fields a scenario sets.
type RulesOverride struct {
	Players          *int   `yaml:"players,omitempty"`
	RecruitsDealt    *int   `yaml:"recruits_dealt,omitempty"`
	RecruitsKept     *int   `yaml:"recruits_kept,omitempty"`
	Workers          *int   `yaml:"workers,omitempty"`
	EvaluationStride *int64 `yaml:"evaluation_stride,omitempty"`
	ConfirmsLast     *bool  `yaml:"confirms_last,omitempty"`
}

// Apply returns base with the override's fields set.
func (o RulesOverride) Apply(base rules.Rules) rules.Rules {
	if o.Players != nil {
		base.Players = *o.Players
	}
	if o.RecruitsDealt != nil {
		base.RecruitsDealt = *o.RecruitsDealt
	}
	if o.RecruitsKept != nil {
		base.RecruitsKept = *o.RecruitsKept
	}
	if o.Workers != nil {
		base.Workers = *o.Workers
	}
	if o.EvaluationStride != nil {
		base.EvaluationStride = *o.EvaluationStride
	}
	if o.ConfirmsLast != nil {
		base.ConfirmsLast = *o.ConfirmsLast
	}
	return base
}

// MoveSpec is one move as written in a scenario.
type MoveSpec struct {
	Index     int    `yaml:"index"`
	Op        string `yaml:"op"`
	Player    int    `yaml:"player"`
	Source    string `yaml:"source,omitempty"`
	Dest      string `yaml:"dest,omitempty"`
	ElapsedMS int64  `yaml:"elapsed_ms,omitempty"`
	Ephemeral bool   `yaml:"ephemeral,omitempty"`
}

// Record converts the written move to a move record.
func (m MoveSpec) Record(ephemeral bool) (ir.MoveRecord, error) {
	op, err := ir.ParseOpKind(m.Op)
	if err != nil {
		return ir.MoveRecord{}, err
	}
	rec, err := ir.NewMove(op, ir.Player(m.Player), ir.Location(m.Source), ir.Location(m.Dest),
		m.Index, ephemeral || m.Ephemeral)
	if err != nil {
		return ir.MoveRecord{}, err
	}
	rec.SetElapsed(msDuration(m.ElapsedMS))
	return rec, nil
}

// Replica names one arrival order.
type Replica struct {
	Name  string `yaml:"name"`
	Order []int  `yaml:"order"`
}

// Assertion validates the canonical log.
type Assertion struct {
	// Type specifies the assertion type:
	// - "ops": the log's op sequence equals Ops exactly
	// - "count": Op appears exactly Count times
	// - "absent": Op never appears
	// - "contiguous": every record's index equals its position
	// - "grouped": the finalized recruit block is ordered by player
	// - "replays": the log replays on a fresh board
	// - "error": canonicalization fails with contract code Code
	Type string `yaml:"type"`

	// Ops is the expected op sequence (used by ops).
	Ops []string `yaml:"ops,omitempty"`

	// Op is the operation kind (used by count and absent).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of occurrences (used by count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected contract error code (used by error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertOps        = "ops"
	AssertCount      = "count"
	AssertAbsent     = "absent"
	AssertContiguous = "contiguous"
	AssertGrouped    = "grouped"
	AssertReplays    = "replays"
	AssertError      = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, m := range s.Log {
		if err := validateMove(fmt.Sprintf("log[%d]", i), m); err != nil {
			return err
		}
	}
	for i, m := range s.Ephemeral {
		if err := validateMove(fmt.Sprintf("ephemeral[%d]", i), m); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(s.Replicas))
	for i, r := range s.Replicas {
		if r.Name == "" {
			return fmt.Errorf("replicas[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("replicas[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
		if !isPermutation(r.Order, len(s.Ephemeral)) {
			return fmt.Errorf("replicas[%d]: order must be a permutation of 0..%d", i, len(s.Ephemeral)-1)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateMove(where string, m MoveSpec) error {
	if m.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if _, err := ir.ParseOpKind(m.Op); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if m.ElapsedMS < 0 {
		return fmt.Errorf("%s: elapsed_ms must be non-negative", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOps:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for ops", index)
		}
		for _, name := range a.Ops {
			if _, err := ir.ParseOpKind(name); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertCount, AssertAbsent:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for %s", index, a.Type)
		}
		if _, err := ir.ParseOpKind(a.Op); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertContiguous, AssertGrouped, AssertReplays:
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	sorted := slices.Sorted(slices.Values(order))
	for i, v := range sorted {
		if v != i {
			return false
		}
	}
	return true
}
