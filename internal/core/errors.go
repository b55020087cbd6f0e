package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Quota or rate limit exhausted
	ErrCatTransient  ErrorCategory = "transient"  // 5xx, timeouts, unavailable
	ErrCatFatal      ErrorCategory = "fatal"      // Non-retryable service failure
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Attempts returns the number of attempts recorded on the error, or 0.
func (e *DomainError) Attempts() int {
	if e.Details == nil {
		return 0
	}
	n, _ := e.Details["attempts"].(int)
	return n
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// RateLimitMessage is the caller-facing guidance attached to rate limit failures.
const RateLimitMessage = "the generation service is rate limiting requests; wait a minute and try again, " +
	"or break the request into smaller parts"

// ErrRateLimitExceeded creates the error surfaced once retries are exhausted
// on a rate limit condition.
func ErrRateLimitExceeded(attempts int, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      CodeRateLimitExceeded,
		Message:   fmt.Sprintf("rate limit exceeded after %d attempts: %s", attempts, RateLimitMessage),
		Retryable: false,
		Cause:     cause,
		Details:   map[string]interface{}{"attempts": attempts},
	}
}

// ErrTransientService creates the error surfaced once retries are exhausted
// on a transient service failure.
func ErrTransientService(attempts int, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatTransient,
		Code:      CodeServiceUnavailable,
		Message:   fmt.Sprintf("generation service failed after %d attempts", attempts),
		Retryable: false,
		Cause:     cause,
		Details:   map[string]interface{}{"attempts": attempts},
	}
}

// ErrFatal creates a non-retryable service error.
func ErrFatal(cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatFatal,
		Code:      CodeGenerationFailed,
		Message:   "generation request failed",
		Retryable: false,
		Cause:     cause,
	}
}

// ErrConflict creates a conflict error.
func ErrConflict(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConflict,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrInternal creates an internal error.
func ErrInternal(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// IsRateLimit reports whether err is an exhausted rate limit failure.
func IsRateLimit(err error) bool {
	return IsCategory(err, ErrCatRateLimit)
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeGenerationFailed   = "GENERATION_FAILED"
	CodeTaskInFlight       = "TASK_IN_FLIGHT"
	CodeStateOwnership     = "STATE_OWNERSHIP"

	// Validation error codes
	CodeEmptyQuery     = "EMPTY_QUERY"
	CodeQueryTooLong   = "QUERY_TOO_LONG"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeMissingStage   = "MISSING_STAGE"
	CodeInvalidRequest = "INVALID_REQUEST"
)

// MaxQueryLength is the maximum allowed user query length.
const MaxQueryLength = 20000

// ServiceError is the structured failure returned by generator adapters.
// StatusCode is the HTTP status reported by the provider, or 0 when unknown.
type ServiceError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d: %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}
