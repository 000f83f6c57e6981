package ledger

import (
	"errors"
	"time"
)

// Code is a machine-readable ledger error code.
type Code string

const (
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeInvalidChoice      Code = "INVALID_CHOICE"
	CodeConflictingNumber  Code = "CONFLICTING_NUMBER"
	CodeSelfAcceptance     Code = "SELF_ACCEPTANCE"
	CodeSelfTransfer       Code = "SELF_TRANSFER"
	CodeEscrowNotFound     Code = "ESCROW_NOT_FOUND"
	CodeAlreadyResolved    Code = "ALREADY_RESOLVED"
	CodeStillOnCooldown    Code = "STILL_ON_COOLDOWN"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)

// Error is the ledger's domain error. Two errors match under errors.Is when
// their codes are equal, so callers compare against the Err* values.
type Error struct {
	Code      Code
	Message   string
	Remaining time.Duration // set for CodeStillOnCooldown
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ledger error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrInsufficientFunds  = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrInvalidAmount      = &Error{Code: CodeInvalidAmount, Message: "amount must be positive"}
	ErrInvalidChoice      = &Error{Code: CodeInvalidChoice, Message: "invalid choice"}
	ErrConflictingNumber  = &Error{Code: CodeConflictingNumber, Message: "already bet on a different number this round"}
	ErrSelfAcceptance     = &Error{Code: CodeSelfAcceptance, Message: "cannot accept your own duel"}
	ErrSelfTransfer       = &Error{Code: CodeSelfTransfer, Message: "cannot transfer to yourself"}
	ErrEscrowNotFound     = &Error{Code: CodeEscrowNotFound, Message: "escrow not found"}
	ErrAlreadyResolved    = &Error{Code: CodeAlreadyResolved, Message: "escrow already resolved"}
	ErrStillOnCooldown    = &Error{Code: CodeStillOnCooldown, Message: "grant still on cooldown"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "failed to persist ledger state"}
)

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func cooldownError(remaining time.Duration) *Error {
	return &Error{
		Code:      CodeStillOnCooldown,
		Message:   "grant still on cooldown for " + remaining.Round(time.Second).String(),
		Remaining: remaining,
	}
}

func persistError(cause error) *Error {
	return &Error{Code: CodePersistenceFailure, Message: "failed to persist ledger state", Cause: cause}
}

// CodeOf returns the ledger code carried by err, or "" when err is not a ledger error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// RemainingCooldown extracts the wait from a StillOnCooldown error.
func RemainingCooldown(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeStillOnCooldown {
		return e.Remaining, true
	}
	return 0, false
}
