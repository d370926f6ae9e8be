// Package version reports build information for wirekit applications.
//
// Version, Commit and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/wirekit/version.Version=1.2.0"
//
// Anything left unset falls back to the VCS stamps Go embeds in the binary.
// When an application's config leaves its version empty, bootstrap uses
// Read().Short() instead, and the diagnostics server reports Read() on its
// version endpoint.
package version
