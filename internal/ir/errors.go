package ir

import (
	"errors"
	"fmt"
)

// ContractError reports misuse of a move record by upstream move generation.
//
// Contract errors are programming errors, not user-facing conditions:
//   - Rewriting a record that is already permanent
//   - Creating a permanent record with an ephemeral-only kind
//   - An ephemeral kind the canonicalizer does not know how to finalize
//   - A sequence index that does not fit in the evaluation stride
//
// Reconciliation stops on the first contract error. Continuing would let
// replicas diverge.
type ContractError struct {
	// Code identifies the violated contract.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the sequence index of the offending record, -1 if unknown.
	Index int

	// Op is the operation kind of the offending record.
	Op OpKind
}

// ContractErrorCode categorizes contract violations.
type ContractErrorCode string

const (
	// ErrCodeUnknownEphemeralOp indicates an ephemeral-phase kind with no finalization rule.
	ErrCodeUnknownEphemeralOp ContractErrorCode = "UNKNOWN_EPHEMERAL_OP"

	// ErrCodeRewritePermanent indicates RewriteAs on a permanent record.
	ErrCodeRewritePermanent ContractErrorCode = "REWRITE_PERMANENT"

	// ErrCodeInvalidRewriteTarget indicates RewriteAs to an ephemeral or invalid kind.
	ErrCodeInvalidRewriteTarget ContractErrorCode = "INVALID_REWRITE_TARGET"

	// ErrCodeEphemeralPermanentKind indicates a permanent record carrying an ephemeral kind.
	ErrCodeEphemeralPermanentKind ContractErrorCode = "EPHEMERAL_PERMANENT_KIND"

	// ErrCodeNonEphemeralPush indicates a permanent record pushed to the ephemeral buffer.
	ErrCodeNonEphemeralPush ContractErrorCode = "NON_EPHEMERAL_PUSH"

	// ErrCodeStrideOverflow indicates a sequence index too large for the evaluation key.
	ErrCodeStrideOverflow ContractErrorCode = "STRIDE_OVERFLOW"

	// ErrCodeInvalidOp indicates a record with an undeclared kind.
	ErrCodeInvalidOp ContractErrorCode = "INVALID_OP"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (index=%d, op=%s)", e.Code, e.Message, e.Index, e.Op)
	}
	return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
}

// NewContractError creates a ContractError for the given record.
func NewContractError(code ContractErrorCode, rec MoveRecord, format string, args ...any) *ContractError {
	return &ContractError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Index:   rec.Index,
		Op:      rec.Op,
	}
}

// IsContractError returns true if err is or wraps a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// ContractCode returns the code of a wrapped ContractError, or "" if err is not one.
func ContractCode(err error) ContractErrorCode {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
