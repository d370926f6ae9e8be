// Package observability provides OpenTelemetry tracing and metrics for the
// wiring engine and its lifecycle.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanWiringSubmit)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewWiringMetrics(observability.Meter("my-service"))
//	wctx := di.NewWiringContext(di.WithObserver(metrics))
//
// Health Checks:
//
//	health := observability.NewServiceHealth("my-service", "1.0.0")
//	health.Check(ctx, names, instances)
package observability
