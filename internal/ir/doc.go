// Package ir provides the canonical representation of game moves.
//
// This package contains the move record, the closed set of operation kinds,
// the contract errors raised when a record is misused, and the canonical
// encoding used for digests. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - elapsed time is encoded as integer milliseconds
//   - Operation kinds are a closed enum; unknown text names are rejected
//   - All JSON tags use snake_case
//   - Ordering uses sequence indices only, never wall-clock timestamps
package ir
