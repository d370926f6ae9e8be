package intercept

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/logger"
	"github.com/kbukum/wirekit/observability"
)

// Logging logs every invocation with its duration. Failures log at Error,
// successes at Debug.
func Logging(log *logger.Logger) Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (any, error) {
		start := time.Now()
		out, err := next(ctx, inv)

		fields := map[string]interface{}{
			logger.FieldComponent: inv.Target,
			logger.FieldMember:    inv.Method,
			logger.FieldDuration:  time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields[logger.FieldError] = err.Error()
			log.WithContext(ctx).Error("proxied call failed", fields)
		} else {
			log.WithContext(ctx).Debug("proxied call ok", fields)
		}
		return out, err
	})
}

// Tracing opens a span named "{service}.{target}.{method}" around every
// invocation.
func Tracing(service string) Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (any, error) {
		ctx, span := observability.StartSpan(ctx, service+"."+inv.Target+"."+inv.Method)
		defer span.End()

		observability.SetSpanAttribute(ctx, observability.AttrServiceName, service)
		observability.SetSpanAttribute(ctx, observability.AttrComponent, inv.Target)
		observability.SetSpanAttribute(ctx, observability.AttrOperationName, inv.Method)

		out, err := next(ctx, inv)
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		return out, err
	})
}

// Recover turns a panic in an inner handler into an INVOCATION_FAILURE error.
func Recover() Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				out = nil
				err = apperrors.InvocationFailure(inv.Target, inv.Method, fmt.Errorf("panic: %v", r))
			}
		}()
		return next(ctx, inv)
	})
}

// Timeout bounds each invocation's context.
func Timeout(d time.Duration) Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *Invocation, next Handler) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx, inv)
	})
}
