// Package apperrors holds the typed errors shared by the backend, pipeline
// and HTTP layers. Callers match them with errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError carries per-field messages for a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("validation error: %s: %s", field, msg)
		}
	}
	return "validation error"
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// UnsupportedModelError means the resolved family has no backend
// implementation (or none configured). It is reported as not found.
type UnsupportedModelError struct{ Family string }

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("Unsupported model: %s", e.Family)
}

// AIModelError wraps any failure of a vendor call. Message is safe to show
// to clients; Err keeps the vendor cause for logs.
type AIModelError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AIModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AIModelError) Unwrap() error { return e.Err }

// NewAIModelError wraps a vendor failure with a 502 status.
func NewAIModelError(message string, err error) *AIModelError {
	return &AIModelError{Message: message, StatusCode: http.StatusBadGateway, Err: err}
}

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// StatusCode maps an error to the HTTP status it surfaces as.
func StatusCode(err error) int {
	var (
		validation  *ValidationError
		notFound    *NotFoundError
		unsupported *UnsupportedModelError
		aiErr       *AIModelError
		unauth      *UnauthorizedError
		forbidden   *ForbiddenError
		rateLimited *RateLimitError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &unsupported):
		return http.StatusNotFound
	case errors.As(err, &aiErr):
		if aiErr.StatusCode != 0 {
			return aiErr.StatusCode
		}
		return http.StatusBadRequest
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsPermanent reports whether retrying the same work can never succeed.
func IsPermanent(err error) bool {
	var (
		validation  *ValidationError
		notFound    *NotFoundError
		unsupported *UnsupportedModelError
	)
	return errors.As(err, &validation) || errors.As(err, &notFound) || errors.As(err, &unsupported)
}
