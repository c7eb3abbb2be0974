// Package harness provides conformance testing for move-history
// canonicalization.
//
// A scenario fixes the log as it stood when a simultaneous phase ended and
// the ephemeral moves buffered during it, then canonicalizes once per
// replica with the moves delivered in that replica's order. Every replica
// must produce a byte-identical canonical log.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules:
//	  players: 2
//	  confirms_last: false
//	log:
//	  - { index: 0, op: NormalStart, player: 0, elapsed_ms: 0 }
//	ephemeral:
//	  - { index: 1, op: EphemeralChooseRecruit, player: 0,
//	      source: p0/reserve/0, dest: p0/active/0, elapsed_ms: 1000 }
//	replicas:
//	  - { name: alice, order: [0] }
//	assertions:
//	  - type: ops
//	    ops: [NormalStart, ChooseRecruit]
//	  - type: contiguous
//
// # Assertion Types
//
//   - ops: the canonical op sequence matches exactly
//   - count: an op appears exactly N times
//   - absent: an op never appears
//   - contiguous: every index equals its position
//   - grouped: finalized recruit records are grouped by player
//   - replays: the log applies cleanly to a freshly dealt board
//   - error: canonicalization fails with the given contract code
//
// # Golden Files
//
// RunWithGolden snapshots the canonical log and its digest under
// testdata/golden. The snapshot uses canonical JSON, so a golden diff is
// exactly a change in what replicas would agree on.
package harness
