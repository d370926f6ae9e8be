package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/wirekit/config"
	"github.com/kbukum/wirekit/observability"
)

// initTelemetry installs the OTLP tracer and meter providers when telemetry
// is enabled. The returned function flushes and shuts both down.
func initTelemetry(ctx context.Context, base *config.ServiceConfig) (func(context.Context) error, error) {
	tc := base.Wiring.Telemetry
	if !tc.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := observability.InitTracer(ctx, &observability.TracerConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		SampleRate:     tc.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		Interval:       tc.MetricInterval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("meter: %w", err)
	}

	return func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}
