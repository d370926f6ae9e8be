// Package errors provides the unified error type used across wirekit.
//
// Wiring failures carry one of the wiring codes (NO_SUITABLE_CONSTRUCTOR,
// UNRESOLVED_DEPENDENCY, INVOCATION_FAILURE, CONFIGURATION_ACCESS_FAILURE,
// LIFECYCLE_ORDER) and details naming the component and dependency involved.
package errors
