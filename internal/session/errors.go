package session

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates an empty name or email.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeRunInProgress indicates a submission while a run is in flight.
	ErrCodeRunInProgress ErrorCode = "RUN_IN_PROGRESS"

	// ErrCodeSessionClosed indicates a call after Close.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"

	// ErrCodeRunCancelled indicates the submission was cancelled or reset
	// while its registration attempt was still in flight.
	ErrCodeRunCancelled ErrorCode = "RUN_CANCELLED"
)

// Error is returned by Session operations that refuse to act.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending input for ErrCodeInvalidInput.
	Field string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidInput(field string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: field + " must not be empty",
		Field:   field,
	}
}

var (
	errRunInProgress = &Error{Code: ErrCodeRunInProgress, Message: "a run is already in flight"}
	errClosed        = &Error{Code: ErrCodeSessionClosed, Message: "session is closed"}
	errRunCancelled  = &Error{Code: ErrCodeRunCancelled, Message: "submission cancelled before the run started"}
)

// CodeOf returns the code of a session error anywhere in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// IsInvalidInput returns true if err is an invalid input error.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidInput
}

// IsRunInProgress returns true if err rejected a re-entrant submission.
func IsRunInProgress(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeRunInProgress
}

// IsSessionClosed returns true if err came from a closed session.
func IsSessionClosed(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeSessionClosed
}

// IsRunCancelled returns true if the submission was cancelled in flight.
func IsRunCancelled(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeRunCancelled
}
