// Package intercept builds interception proxies around components.
//
// Go cannot synthesize an implementation of an interface at run time, so a
// Proxy is a named method table: each entry is a Handler, and every call goes
// through the configured Interceptors first.
//
//	p, err := intercept.For("repo").
//	    Reflect(repo).
//	    Use(intercept.Recover(), intercept.Logging(log)).
//	    Build()
//	n, err := intercept.Call[int](ctx, p, "Count")
//
// Retry and Breaker guard calls to flaky targets. Retry backs off
// exponentially between attempts; a Breaker shared by a proxy fails fast with
// SERVICE_UNAVAILABLE once the target keeps failing.
//
// A typed facade that forwards its methods to the proxy can then be
// registered with the wiring context like any other instance.
package intercept
