package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/movelog/internal/board"
	"github.com/roach88/movelog/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the canonical log to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Log      []ir.MoveRecord // Canonical log for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Log) > 0 {
		fmt.Fprintf(&buf, "\nCanonical log:\n")
		for _, rec := range e.Log {
			fmt.Fprintf(&buf, "  %s\n", rec)
		}
	}

	return buf.String()
}

// checkAssertions evaluates every assertion and records failures on result.
func (h *Harness) checkAssertions(result *Result) error {
	expectsError := false
	for _, a := range h.scenario.Assertions {
		if a.Type == AssertError {
			expectsError = true
		}
	}
	if result.Failed() && !expectsError {
		result.AddError(fmt.Sprintf("canonicalization failed: %s", result.Code))
		return nil
	}

	for _, a := range h.scenario.Assertions {
		if result.Failed() && a.Type != AssertError {
			continue
		}
		if err := h.evaluate(a, result); err != nil {
			var ae *AssertionError
			if !errors.As(err, &ae) {
				return err
			}
			result.AddError(err.Error())
		}
	}
	return nil
}

func (h *Harness) evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertOps:
		return assertOps(result.Log, a)
	case AssertCount:
		return assertCount(result.Log, a)
	case AssertAbsent:
		return assertCount(result.Log, Assertion{Type: AssertAbsent, Op: a.Op})
	case AssertContiguous:
		return assertContiguous(result.Log)
	case AssertGrouped:
		return assertGrouped(result.Log, h.rules.ConfirmsLast)
	case AssertReplays:
		return h.assertReplays(result.Log)
	case AssertError:
		return assertError(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOps checks the log's op sequence exactly.
func assertOps(log []ir.MoveRecord, a Assertion) error {
	actual := opNames(log)
	if strings.Join(actual, ",") == strings.Join(a.Ops, ",") {
		return nil
	}
	return &AssertionError{
		Type:     AssertOps,
		Expected: fmt.Sprintf("%v", a.Ops),
		Actual:   fmt.Sprintf("%v", actual),
		Log:      log,
	}
}

// assertCount checks how often an op kind appears. absent is count zero.
func assertCount(log []ir.MoveRecord, a Assertion) error {
	count := 0
	for _, rec := range log {
		if rec.Op.String() == a.Op {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s appears %d times", a.Op, a.Count),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Log:      log,
	}
}

// assertContiguous checks that every record's index equals its position.
func assertContiguous(log []ir.MoveRecord) error {
	for i, rec := range log {
		if rec.Index != i {
			return &AssertionError{
				Type:     AssertContiguous,
				Expected: fmt.Sprintf("index %d at position %d", i, i),
				Actual:   fmt.Sprintf("index %d", rec.Index),
				Log:      log,
			}
		}
	}
	return nil
}

// assertGrouped checks player grouping inside each run of recruit records.
// With confirmsLast, choices precede confirmations and each part is ordered
// by player. Otherwise the whole run is ordered by player.
func assertGrouped(log []ir.MoveRecord, confirmsLast bool) error {
	fail := func(rec ir.MoveRecord, expected string) error {
		return &AssertionError{
			Type:     AssertGrouped,
			Expected: expected,
			Actual:   rec.String(),
			Log:      log,
		}
	}

	inRun := false
	var lastChoose, lastConfirm, last ir.Player
	seenConfirm := false
	for _, rec := range log {
		if rec.Op != ir.OpChooseRecruit && rec.Op != ir.OpConfirmRecruits {
			inRun = false
			continue
		}
		if !inRun {
			inRun = true
			seenConfirm = false
			lastChoose, lastConfirm, last = rec.Player, rec.Player, rec.Player
		}

		if !confirmsLast {
			if rec.Player < last {
				return fail(rec, fmt.Sprintf("player >= %d", last))
			}
			last = rec.Player
			continue
		}

		switch rec.Op {
		case ir.OpChooseRecruit:
			if seenConfirm {
				return fail(rec, "no choice after a confirmation")
			}
			if rec.Player < lastChoose {
				return fail(rec, fmt.Sprintf("player >= %d", lastChoose))
			}
			lastChoose = rec.Player
		case ir.OpConfirmRecruits:
			if !seenConfirm {
				seenConfirm = true
				lastConfirm = rec.Player
			}
			if rec.Player < lastConfirm {
				return fail(rec, fmt.Sprintf("player >= %d", lastConfirm))
			}
			lastConfirm = rec.Player
		}
	}
	return nil
}

// assertReplays applies the log to a freshly dealt board.
func (h *Harness) assertReplays(log []ir.MoveRecord) error {
	if _, err := board.Replay(h.rules, log); err != nil {
		return &AssertionError{
			Type:     AssertReplays,
			Expected: "log replays on a fresh board",
			Actual:   err.Error(),
			Log:      log,
		}
	}
	return nil
}

// assertError checks the contract code canonicalization failed with.
func assertError(result *Result, a Assertion) error {
	if string(result.Code) == a.Code {
		return nil
	}
	actual := "canonicalization succeeded"
	if result.Failed() {
		actual = string(result.Code)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: a.Code,
		Actual:   actual,
		Log:      result.Log,
	}
}

func opNames(log []ir.MoveRecord) []string {
	names := make([]string, len(log))
	for i, rec := range log {
		names[i] = rec.Op.String()
	}
	return names
}
