package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Wiring errors
const (
	// ErrCodeNoSuitableConstructor indicates no declared constructor accepts the supplied arguments.
	ErrCodeNoSuitableConstructor ErrorCode = "NO_SUITABLE_CONSTRUCTOR"
	// ErrCodeUnresolvedDependency indicates a required dependency was never provided.
	ErrCodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	// ErrCodeInvocationFailure indicates a constructor, factory or lifecycle method failed.
	ErrCodeInvocationFailure ErrorCode = "INVOCATION_FAILURE"
	// ErrCodeConfigurationAccess indicates a configuration value could not be produced.
	ErrCodeConfigurationAccess ErrorCode = "CONFIGURATION_ACCESS_FAILURE"
	// ErrCodeLifecycleOrder indicates a lifecycle phase was run out of order.
	ErrCodeLifecycleOrder ErrorCode = "LIFECYCLE_ORDER"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeTimeout indicates an operation exceeded its budget.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnavailable indicates a target is refusing calls for now.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// The wiring core never retries on its own; retryable only marks what an
// owning application could sensibly try again.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:               true,
	ErrCodeUnavailable:           true,
	ErrCodeInvocationFailure:     false,
	ErrCodeUnresolvedDependency:  false,
	ErrCodeNoSuitableConstructor: false,
	ErrCodeConfigurationAccess:   false,
	ErrCodeInternal:              false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
