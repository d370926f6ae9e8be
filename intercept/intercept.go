package intercept

import "context"

// Invocation is one call travelling through a proxy.
type Invocation struct {
	Target string
	Method string
	Args   []any
}

// Handler performs an invocation and returns its result.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Interceptor wraps invocations of a proxied component. It decides whether
// and how to call next, and may rewrite the invocation or the result.
type Interceptor interface {
	Intercept(ctx context.Context, inv *Invocation, next Handler) (any, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, inv *Invocation, next Handler) (any, error)

// Intercept calls f.
func (f InterceptorFunc) Intercept(ctx context.Context, inv *Invocation, next Handler) (any, error) {
	return f(ctx, inv, next)
}

// Chain composes interceptors into one. The first interceptor is outermost:
// it sees the invocation first and the result last.
func Chain(interceptors ...Interceptor) Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (any, error) {
		return wrap(next, interceptors)(ctx, inv)
	})
}

func wrap(h Handler, interceptors []Interceptor) Handler {
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic, inner := interceptors[i], h
		h = func(ctx context.Context, inv *Invocation) (any, error) {
			return ic.Intercept(ctx, inv, inner)
		}
	}
	return h
}
