// Package diagnostics exposes a running application's wiring state over HTTP.
//
// The endpoints are read-only and served by gin on a separate listener,
// configured by config.DiagnosticsConfig:
//
//	GET /debug/wiring     providers, waiting requests, completed components
//	GET /debug/lifecycle  lifecycle bindings with their fired state
//	GET /health           aggregated component health
//	GET /alive            liveness
package diagnostics
