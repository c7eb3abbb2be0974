package harness

import (
	"github.com/roach88/movelog/internal/history"
	"github.com/roach88/movelog/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every replica agreed and every
	// assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Log is the canonical log the first replica produced.
	Log []ir.MoveRecord `json:"log"`

	// Digest is the log digest, empty when canonicalization failed.
	Digest string `json:"digest,omitempty"`

	// Code is the contract error code when canonicalization failed.
	Code ir.ContractErrorCode `json:"code,omitempty"`

	Stats history.Stats `json:"stats"`

	// Replicas holds each replica's outcome in scenario order.
	Replicas []ReplicaResult `json:"replicas"`
}

// ReplicaResult is one replica's outcome.
type ReplicaResult struct {
	Name   string               `json:"name"`
	Digest string               `json:"digest,omitempty"`
	Code   ir.ContractErrorCode `json:"code,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Errors:   []string{},
		Log:      []ir.MoveRecord{},
		Replicas: []ReplicaResult{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Failed reports whether canonicalization itself failed.
func (r *Result) Failed() bool {
	return r.Code != ""
}
