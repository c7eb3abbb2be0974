package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/movelog/internal/ir"
)

// Snapshot is the golden form of a scenario outcome: the canonical log and
// its digest, or the contract code when canonicalization failed.
func Snapshot(name string, result *Result) ir.Object {
	if result.Failed() {
		return ir.Object{
			"scenario": ir.String(name),
			"error":    ir.String(result.Code),
		}
	}
	return ir.Object{
		"scenario": ir.String(name),
		"digest":   ir.String(result.Digest),
		"log":      ir.LogValue(result.Log),
	}
}

// RunWithGolden executes a scenario and compares the outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
