package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"

	// Application errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Mind-map error codes carried in AppError.Code
const (
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicateEdge       = "DUPLICATE_EDGE"
	CodeSelfLoop            = "SELF_LOOP"
	CodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	CodeMalformedResponse   = "MALFORMED_RESPONSE"
	CodeExpansionInProgress = "EXPANSION_IN_PROGRESS"
	CodeMapLimitReached     = "MAP_LIMIT_REACHED"
	CodeLocalOnly           = "LOCAL_ONLY"
	CodeMapTooLarge         = "MAP_TOO_LARGE"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail sets a single detail entry
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return sb.String()
}

func newError(errType ErrorType, code, message string, status int) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, "VALIDATION_ERROR", message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, "CONFLICT", message, http.StatusConflict)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newError(ErrorTypeForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, "INTERNAL_ERROR", message, http.StatusInternalServerError)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, "TIMEOUT", fmt.Sprintf("operation '%s' timed out", operation), http.StatusRequestTimeout)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit int, window string) *AppError {
	return newError(ErrorTypeRateLimit, "TOO_MANY_REQUESTS",
		fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window), http.StatusTooManyRequests)
}

// NewThrottledError creates a rate limit error with a custom message
func NewThrottledError(message string) *AppError {
	return newError(ErrorTypeRateLimit, "TOO_MANY_REQUESTS", message, http.StatusTooManyRequests)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, "SERVICE_UNAVAILABLE",
		fmt.Sprintf("service '%s' is unavailable", service), http.StatusServiceUnavailable)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	e := newError(ErrorTypeDatabase, "DATABASE_ERROR",
		fmt.Sprintf("database operation '%s' failed", operation), http.StatusInternalServerError)
	e.Cause = err
	return e
}

// NewExternalError creates an external service error
func NewExternalError(service string, err error) *AppError {
	e := newError(ErrorTypeExternal, "EXTERNAL_ERROR",
		fmt.Sprintf("external service '%s' error", service), http.StatusBadGateway)
	e.Cause = err
	return e
}

// Mind-map error kinds

// NewDuplicateEdgeError reports an edge that already connects the pair
func NewDuplicateEdgeError(source, target string) *AppError {
	return newError(ErrorTypeConflict, CodeDuplicateEdge,
		fmt.Sprintf("edge already exists between %s and %s", source, target), http.StatusConflict).
		WithDetail("source", source).
		WithDetail("target", target)
}

// NewSelfLoopError reports an edge from a node to itself
func NewSelfLoopError(nodeID string) *AppError {
	return newError(ErrorTypeValidation, CodeSelfLoop,
		fmt.Sprintf("cannot connect node %s to itself", nodeID), http.StatusBadRequest).
		WithDetail("node", nodeID)
}

// NewRemoteUnavailableError reports an unreachable store or suggestion service,
// or one that answered with a non-success status
func NewRemoteUnavailableError(service string, err error) *AppError {
	e := newError(ErrorTypeUnavailable, CodeRemoteUnavailable,
		fmt.Sprintf("remote service '%s' is unavailable", service), http.StatusServiceUnavailable)
	e.Cause = err
	return e
}

// NewMalformedResponseError reports content that could not be parsed
func NewMalformedResponseError(service, reason string) *AppError {
	return newError(ErrorTypeExternal, CodeMalformedResponse,
		fmt.Sprintf("malformed response from '%s': %s", service, reason), http.StatusBadGateway)
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// HasCode checks if an error carries a specific code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool {
	return IsType(err, ErrorTypeForbidden)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return IsType(err, ErrorTypeInternal)
}

// IsDuplicateEdge checks for a rejected duplicate connection
func IsDuplicateEdge(err error) bool {
	return HasCode(err, CodeDuplicateEdge)
}

// IsSelfLoop checks for a rejected self connection
func IsSelfLoop(err error) bool {
	return HasCode(err, CodeSelfLoop)
}

// IsRemoteUnavailable checks for an unreachable remote collaborator
func IsRemoteUnavailable(err error) bool {
	return HasCode(err, CodeRemoteUnavailable)
}

// IsMalformedResponse checks for unparseable remote content
func IsMalformedResponse(err error) bool {
	return HasCode(err, CodeMalformedResponse)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
