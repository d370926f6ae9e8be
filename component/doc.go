// Package component holds the lifecycle side of wirekit.
//
// A Dispatcher records lifecycle bindings (one component method tied to one
// phase) while components are wired and fires each of them exactly once:
//
//   - PRE_INIT fires immediately during a component's setup, through Fire.
//   - POST_INIT fires once, in creation order, after wiring was finalized.
//   - PRE_SHUTDOWN fires once, in reverse creation order, during teardown.
//
// Bindings with an interval are periodic and are left to a scheduler.
//
// The package also defines the optional HealthChecker and Describable
// interfaces that wired components may implement.
package component
