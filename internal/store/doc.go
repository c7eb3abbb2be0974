// Package store provides SQLite-backed durable storage for move histories.
//
// Each session's permanent log is stored as rows of the moves table keyed by
// (session_id, idx). Plain permanent moves are appended one at a time;
// a reconciliation replaces the session's whole log in one transaction, so
// readers see either the old log or the canonical one, never a mix.
//
// # Ordering
//
// All reads ORDER BY idx ASC. The canonical log's indices are contiguous
// from zero, so row order is log order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// move_id and the stored digest are computed by internal/ir using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store
