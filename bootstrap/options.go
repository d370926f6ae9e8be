package bootstrap

import (
	"time"

	"github.com/kbukum/wirekit/di"
	"github.com/kbukum/wirekit/intercept"
	"github.com/kbukum/wirekit/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	discoverers     []Discoverer
	configSource    di.ConfigSource
	wiringOptions   []di.Option
	periodic        []intercept.Interceptor
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is auto-initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithDiscovery adds a source of component declarations. Sources are asked
// in the order they were added.
func WithDiscovery(d Discoverer) Option {
	return func(o *appOptions) {
		o.discoverers = append(o.discoverers, d)
	}
}

// WithComponents adds descriptors to submit, in order.
func WithComponents(descs ...di.Descriptor) Option {
	return WithDiscovery(Components(descs...))
}

// WithConfigSource sets the source for configuration-valued injection points.
func WithConfigSource(src di.ConfigSource) Option {
	return func(o *appOptions) {
		o.configSource = src
	}
}

// WithWiringOptions passes extra options to the wiring context, e.g.
// di.WithDefault.
func WithWiringOptions(opts ...di.Option) Option {
	return func(o *appOptions) {
		o.wiringOptions = append(o.wiringOptions, opts...)
	}
}

// WithPeriodicInterceptors wraps every run of a periodic lifecycle method,
// e.g. with intercept.Retry or a Breaker.
func WithPeriodicInterceptors(interceptors ...intercept.Interceptor) Option {
	return func(o *appOptions) {
		o.periodic = append(o.periodic, interceptors...)
	}
}
