// Package history reconciles simultaneous-phase moves into one canonical log.
//
// During a simultaneous phase every replica appends ephemeral moves to its
// own Buffer, in whatever order the moves reach it. No replica coordinates
// with another while the phase runs. Once the Gate reports that every player
// has finished, Canonicalize turns the buffer into permanent records and
// splices them into the Log.
//
// CRITICAL: the canonical output is a pure function of the ephemeral
// records' content (kind, player, index, locations). Arrival order never
// influences it. Two replicas that saw the same set of moves in different
// orders produce byte-identical logs (see ir.LogDigest).
//
// The Log is an arena of records addressed by stable RecordID plus an
// ordered slice of IDs. Splicing is a slice insert; there are no pointers to
// relink and no way to form a cycle.
package history
