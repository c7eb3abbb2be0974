package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that stops a replica.
//
// Runtime errors include:
//   - Divergence: the replayed canonical log does not rebuild the live board
//   - Reconcile failed: canonicalization hit a contract violation
//   - Persist failed: the store rejected a write
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Session identifies the affected session.
	Session string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDivergence indicates the canonical log replays to a different board.
	ErrCodeDivergence RuntimeErrorCode = "DIVERGENCE"

	// ErrCodeReconcileFailed indicates reconciliation was aborted.
	ErrCodeReconcileFailed RuntimeErrorCode = "RECONCILE_FAILED"

	// ErrCodePersistFailed indicates a store write failed.
	ErrCodePersistFailed RuntimeErrorCode = "PERSIST_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Session != "" {
		msg = fmt.Sprintf("%s (session=%s)", msg, e.Session)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsDivergence returns true if the error is a divergence error.
// Uses errors.As to handle wrapped errors.
func IsDivergence(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDivergence
	}
	return false
}

// IsRuntimeError reports whether err stops the replica.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// NewDivergenceError creates a RuntimeError for a board mismatch.
func NewDivergenceError(session, live, replayed string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDivergence,
		Message: "canonical log does not rebuild the live board",
		Session: session,
		Details: map[string]string{
			"live_digest":     live,
			"replayed_digest": replayed,
		},
	}
}
