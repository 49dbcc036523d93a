// Package errors defines the structured error responses of the HTTP API
// and the mapping from domain errors onto them.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "voxledger/internal/app/errors"
)

// ErrorKind classifies API errors for clients.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindBadRequest    ErrorKind = "bad_request"
	KindInternal      ErrorKind = "internal"
)

// APIError is the JSON error body every failing endpoint returns.
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus maps the kind to a status code. Admission rejections are
// client errors, never 500s.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error with field details.
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{Kind: KindValidation, Message: message, Details: fields}
}

// NewNotFoundError creates a not found error for a resource.
func NewNotFoundError(resource string) *APIError {
	return &APIError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Message: message}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *APIError {
	return &APIError{Kind: KindConflict, Message: message}
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return &APIError{Kind: KindInternal, Message: message}
}

// FromDomain translates pipeline and ledger errors into API errors.
// Engine and persistence failures never reach clients directly; they
// surface through the job's terminal state instead.
func FromDomain(err error) *APIError {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		return NewValidationError("validation failed", map[string]string{verr.Field: verr.Reason})
	}

	var qerr *apperrors.QuotaExceededError
	if errors.As(err, &qerr) {
		return &APIError{
			Kind:    KindQuotaExceeded,
			Message: "insufficient quota for the requested audio",
			Details: map[string]string{
				"requested_minutes": qerr.Requested.Round(4).String(),
				"remaining_minutes": qerr.Remaining.Round(4).String(),
			},
		}
	}

	switch {
	case errors.Is(err, apperrors.ErrJobNotFound):
		return NewNotFoundError("job")
	case errors.Is(err, apperrors.ErrUserNotFound):
		return NewNotFoundError("user")
	case errors.Is(err, apperrors.ErrTranscriptNotFound):
		return NewNotFoundError("transcript")
	}

	var terr *apperrors.InvalidTransitionError
	if errors.As(err, &terr) {
		return NewConflictError(terr.Error())
	}

	return NewInternalError("internal server error")
}
