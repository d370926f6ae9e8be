package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/wirekit/component"
	"github.com/kbukum/wirekit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// WiringMetrics holds the OpenTelemetry instruments for wiring and lifecycle
// events. It satisfies the wiring observer interface and the lifecycle
// dispatcher's invoke observer.
type WiringMetrics struct {
	registered        metric.Int64Counter
	deferred          metric.Int64Counter
	delivered         metric.Int64Counter
	defaulted         metric.Int64Counter
	completed         metric.Int64Counter
	waiting           metric.Int64Gauge
	finalizeDuration  metric.Float64Histogram
	lifecycleTotal    metric.Int64Counter
	lifecycleDuration metric.Float64Histogram
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewWiringMetrics creates metric instruments on the given meter.
func NewWiringMetrics(meter metric.Meter) (*WiringMetrics, error) {
	var (
		m   WiringMetrics
		err error
	)

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.registered, "wiring.providers.registered", "Providers registered, including overwrites"},
		{&m.deferred, "wiring.requests.deferred", "Injection points that had to wait for a provider"},
		{&m.delivered, "wiring.requests.delivered", "Waiting injection points satisfied by a later registration"},
		{&m.defaulted, "wiring.defaults.substituted", "Optional injection points that received a default value"},
		{&m.completed, "wiring.components.completed", "Components that finished setup"},
		{&m.lifecycleTotal, "lifecycle.invocations", "Lifecycle method invocations by phase and status"},
		{&m.operationTotal, "schedule.runs", "Periodic method runs by operation and status"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	if m.waiting, err = meter.Int64Gauge("wiring.requests.waiting",
		metric.WithDescription("Required injection points still waiting after finalization"),
	); err != nil {
		return nil, fmt.Errorf("creating wiring.requests.waiting gauge: %w", err)
	}

	histograms := []struct {
		target *metric.Float64Histogram
		name   string
		desc   string
	}{
		{&m.finalizeDuration, "wiring.finalize.duration", "Duration of wiring finalization in seconds"},
		{&m.lifecycleDuration, "lifecycle.duration", "Duration of lifecycle method invocations in seconds"},
		{&m.operationDuration, "schedule.run.duration", "Duration of periodic method runs in seconds"},
	}
	for _, h := range histograms {
		if *h.target, err = meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
		); err != nil {
			return nil, fmt.Errorf("creating %s histogram: %w", h.name, err)
		}
	}

	return &m, nil
}

// Registered records a provider registration.
func (m *WiringMetrics) Registered(typ string, replaced bool) {
	m.registered.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", typ),
		attribute.Bool("replaced", replaced),
	))
}

// Deferred records an injection point that started waiting.
func (m *WiringMetrics) Deferred(consumer, typ string) {
	m.deferred.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", typ)))
}

// Delivered records a waiting injection point being satisfied.
func (m *WiringMetrics) Delivered(consumer, typ string) {
	m.delivered.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", typ)))
}

// Defaulted records a default value substituted for an optional point.
func (m *WiringMetrics) Defaulted(consumer, typ string) {
	m.defaulted.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", typ)))
}

// Completed records a component finishing its setup.
func (m *WiringMetrics) Completed(component string) {
	m.completed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("component", component)))
}

// Finalized records the outcome of wiring finalization.
func (m *WiringMetrics) Finalized(elapsed time.Duration, waiting int, err error) {
	ctx := context.Background()
	m.finalizeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status(err))))
	m.waiting.Record(ctx, int64(waiting))
}

// ObserveBinding records one lifecycle method invocation.
func (m *WiringMetrics) ObserveBinding(ctx context.Context, b component.Binding, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("phase", b.Phase.String()),
		attribute.String("component", b.Owner),
		attribute.String("status", status(err)),
	)
	m.lifecycleTotal.Add(ctx, 1, attrs)
	m.lifecycleDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordOperation records a periodic method run.
func (m *WiringMetrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
