// Package engine runs one replica of a game session.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every move, local or received from another replica, is an Event. Events
// are processed one at a time by Run, so the log, the ephemeral buffer and
// the board are only ever touched by one goroutine.
//
// Event Processing Flow:
//  1. Enqueue() appends to a FIFO queue (safe from any goroutine)
//  2. Run() dequeues events one at a time
//  3. Process() stamps the move, applies it to the board, and routes it:
//     ephemeral moves to the buffer, permanent moves to the log and store
//  4. Once every player has finished the simultaneous phase, the engine
//     appends NormalStart and reconciles the buffer into the log
//  5. The canonical log replaces the stored log in one transaction and its
//     digest is published for convergence checks
//
// Replicas never coordinate. Two replicas that saw the same moves in any
// arrival order reconcile to byte-identical logs.
//
// Error classes:
//   - Illegal moves (board.ErrIllegalMove) are logged and dropped
//   - Contract violations and divergence stop Run
package engine
