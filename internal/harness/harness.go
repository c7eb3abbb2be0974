package harness

import (
	"bytes"
	"fmt"
	"time"

	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
	"github.com/roach88/movelog/internal/rules"
)

// Harness runs one scenario.
type Harness struct {
	scenario  *Scenario
	rules     rules.Rules
	log       []ir.MoveRecord
	ephemeral []ir.MoveRecord
}

// replicaRun is one replica's canonicalization output.
type replicaRun struct {
	log       []ir.MoveRecord
	canonical []byte
	stats     history.Stats
	code      ir.ContractErrorCode
}

// Run executes a test scenario and returns the result.
//
// Each replica canonicalizes the same log and buffer, receiving the buffered
// moves in its own order. The replicas must produce byte-identical canonical
// logs, or all fail with the same contract code. Assertions are then checked
// against the first replica's output.
//
// Returns an error only when the scenario cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	replicas := scenario.Replicas
	if len(replicas) == 0 {
		replicas = []Replica{{Name: "default", Order: identity(len(h.ephemeral))}}
	}

	result := NewResult()
	runs := make([]replicaRun, len(replicas))
	for i, replica := range replicas {
		run, err := h.runReplica(replica.Order)
		if err != nil {
			return nil, fmt.Errorf("replica %s: %w", replica.Name, err)
		}
		runs[i] = run

		rr := ReplicaResult{Name: replica.Name, Code: run.code}
		if run.code == "" {
			rr.Digest = ir.MustLogDigest(run.log)
		}
		result.Replicas = append(result.Replicas, rr)
	}

	first := runs[0]
	result.Code = first.code
	result.Stats = first.stats
	if first.code == "" {
		result.Log = first.log
		result.Digest = result.Replicas[0].Digest
	}

	for i, run := range runs[1:] {
		name := replicas[i+1].Name
		switch {
		case run.code != first.code:
			result.AddError(fmt.Sprintf("replica %s: outcome %q differs from %s outcome %q",
				name, run.code, replicas[0].Name, first.code))
		case !bytes.Equal(run.canonical, first.canonical):
			result.AddError(fmt.Sprintf("replica %s: canonical log differs from %s\n  %s: %s\n  %s: %s",
				name, replicas[0].Name, replicas[0].Name, first.canonical, name, run.canonical))
		}
	}

	if err := h.checkAssertions(result); err != nil {
		return nil, err
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	r := scenario.Rules.Apply(rules.Default())
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h := &Harness{scenario: scenario, rules: r}
	for i, m := range scenario.Log {
		rec, err := m.Record(false)
		if err != nil {
			return nil, fmt.Errorf("log[%d]: %w", i, err)
		}
		h.log = append(h.log, rec)
	}
	for i, m := range scenario.Ephemeral {
		rec, err := m.Record(true)
		if err != nil {
			return nil, fmt.Errorf("ephemeral[%d]: %w", i, err)
		}
		h.ephemeral = append(h.ephemeral, rec)
	}
	return h, nil
}

// runReplica canonicalizes with the buffered moves delivered in order.
// A contract violation is an outcome, not an error.
func (h *Harness) runReplica(order []int) (replicaRun, error) {
	buf := history.NewBuffer()
	for _, i := range order {
		if err := buf.Push(h.ephemeral[i]); err != nil {
			if code := ir.ContractCode(err); code != "" {
				return replicaRun{code: code}, nil
			}
			return replicaRun{}, err
		}
	}

	out, stats, err := history.Canonicalize(history.NewLog(h.log...), buf.Records(), h.rules.CanonOptions())
	if err != nil {
		if code := ir.ContractCode(err); code != "" {
			return replicaRun{code: code}, nil
		}
		return replicaRun{}, err
	}

	records := out.Records()
	canonical, err := ir.MarshalLog(records)
	if err != nil {
		return replicaRun{}, err
	}
	return replicaRun{log: records, canonical: canonical, stats: stats}, nil
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
