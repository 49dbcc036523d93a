package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the processing pipeline. Handlers translate these
// into API responses; the worker translates them into terminal job states.
var (
	ErrJobNotFound        = New("job not found")
	ErrUserNotFound       = New("user not found")
	ErrTranscriptNotFound = New("transcript not found")
	ErrDurationUnknown    = New("audio duration unknown at transcription time")
	ErrUnknownTier        = New("unknown model tier")
)

// Error represents a standardized error with an optional cause.
type Error struct {
	message string
	cause   error
}

// New creates a new error
func New(message string) *Error {
	return &Error{message: message}
}

// Newf creates a new formatted error
func Newf(format string, args ...interface{}) *Error {
	return &Error{message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.message == t.message
}

// ValidationError rejects bad input before any state is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// QuotaExceededError denies admission. No job is created when the quota
// check runs before job creation.
type QuotaExceededError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("insufficient quota: requested %s minutes, %s remaining",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2))
}

// EngineError marks an external transcription failure. The message is kept
// verbatim for diagnostics but is not stable across engine versions.
type EngineError struct {
	Cause error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("transcription engine: %v", e.Cause)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// PersistenceError marks a storage failure during the completion group.
// The job must be left in processing for retry, never falsely failed.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// InvalidTransitionError is a programming-contract violation in the job
// state machine, not a user-facing condition.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// InvalidProgressError rejects attempts to lower a non-terminal job's progress.
type InvalidProgressError struct {
	Current int
	Given   int
}

func (e *InvalidProgressError) Error() string {
	return fmt.Sprintf("progress must not decrease: current %d, given %d", e.Current, e.Given)
}
