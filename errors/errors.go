package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status the diagnostics endpoint reports for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Wiring Error Constructors ---

// NoSuitableConstructor reports that none of a component's constructors accept
// the externally supplied arguments.
func NoSuitableConstructor(component string, argTypes []string) *AppError {
	return &AppError{
		Code: ErrCodeNoSuitableConstructor,
		Message: fmt.Sprintf("component %s has no constructor accepting arguments (%s)",
			component, strings.Join(argTypes, ", ")),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"component": component, "arguments": argTypes},
	}
}

// UnresolvedDependency reports a required dependency of consumer that has no provider.
func UnresolvedDependency(consumer, dependency string) *AppError {
	return &AppError{
		Code:       ErrCodeUnresolvedDependency,
		Message:    fmt.Sprintf("%s requires %s but nothing provides it", consumer, dependency),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"consumer": consumer, "dependency": dependency},
	}
}

// InvocationFailure wraps an error (or recovered panic) raised by a constructor,
// factory, setter or lifecycle method.
func InvocationFailure(component, member string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeInvocationFailure,
		Message:    fmt.Sprintf("%s.%s failed", component, member),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"component": component, "member": member},
		Cause:      cause,
	}
}

// ConfigurationAccess reports that a required configuration value for
// consumer could not be produced.
func ConfigurationAccess(consumer, key string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeConfigurationAccess,
		Message:    fmt.Sprintf("%s requires configuration %q which could not be read", consumer, key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"consumer": consumer, "key": key},
		Cause:      cause,
	}
}

// LifecycleOrder reports a lifecycle phase run before its precondition held.
func LifecycleOrder(phase, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeLifecycleOrder,
		Message:    fmt.Sprintf("cannot run %s: %s", phase, reason),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"phase": phase},
	}
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s already exists", resource),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Timeout creates a new AppError for an operation that ran out of time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s did not complete in time", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Unavailable creates a new AppError for a target that is refusing calls,
// e.g. behind an open circuit breaker.
func Unavailable(target string) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("%s is temporarily unavailable", target),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"target": target},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Wrap returns err as an AppError: the AppError in its chain if there is one,
// otherwise an Internal error caused by err. Wrap(nil) is nil.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
