package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a rejected operation. Every domain failure carries
// one; callers branch on the code, not the message.
type ErrorCode string

const (
	// ErrCodeValidation is malformed input: empty name, empty address,
	// zero or invalid amounts
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeWindow is an activation window not strictly in the future
	ErrCodeWindow ErrorCode = "window"
	// ErrCodeEligibility is insufficient stake, a disqualifying balance
	// change, or over-voting
	ErrCodeEligibility ErrorCode = "eligibility"
	// ErrCodeBudgetExceeded is a percentage reservation that would push
	// the budget past 100
	ErrCodeBudgetExceeded ErrorCode = "budget_exceeded"
	// ErrCodeCategory is an unknown vote category
	ErrCodeCategory ErrorCode = "category"
	// ErrCodeThreshold is a distribution below the configured minimum
	ErrCodeThreshold ErrorCode = "threshold"
	// ErrCodeTooEarly is an epoch close attempted before the epoch elapsed
	ErrCodeTooEarly ErrorCode = "too_early"
	// ErrCodeZeroAmount is a withdrawal with nothing to withdraw
	ErrCodeZeroAmount ErrorCode = "zero_amount"
	// ErrCodeState is an operation on a proposal or rule not in the
	// required status
	ErrCodeState ErrorCode = "state"
	// ErrCodeNotFound is a reference to a proposal, rule or holder that
	// does not exist
	ErrCodeNotFound ErrorCode = "not_found"
)

// Error is a domain failure. The whole operation is rejected with no
// state mutation whenever one is returned.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a domain error with a formatted message
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err (or anything it wraps) is a domain error
// with the given code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
