package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/kbukum/wirekit/component"
	"github.com/kbukum/wirekit/config"
	"github.com/kbukum/wirekit/di"
	"github.com/kbukum/wirekit/diagnostics"
	"github.com/kbukum/wirekit/intercept"
	"github.com/kbukum/wirekit/logger"
	"github.com/kbukum/wirekit/observability"
	"github.com/kbukum/wirekit/schedule"
	"github.com/kbukum/wirekit/validation"
	"github.com/kbukum/wirekit/version"
)

// App represents a generic application with uniform lifecycle management.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.ServiceConfig automatically satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&myConfig, bootstrap.WithComponents(storeDesc, apiDesc))
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    return a.Wiring.RegisterInstance(di.TypeOf[Clock](), systemClock{})
//	})
//	app.Run(context.Background())
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Wiring  *di.WiringContext
	Logger  *logger.Logger
	Summary *Summary
	Metrics *observability.WiringMetrics

	gracefulTimeout time.Duration
	discoverers     []Discoverer
	periodic        []intercept.Interceptor
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	scheduler     *schedule.Runner
	diagnostics   *diagnostics.Server
	stopTelemetry func(context.Context) error
	postInit      bool
	stopped       bool
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// creates the wiring context with the config and logger already provided.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if base := cfg.GetServiceConfig(); base.Version == "" {
		base.Version = version.Read().Short()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		logger.SetGlobalLogger(o.logger)
	} else {
		logger.Init(&base.Logging)
	}
	logger.RegisterDefaults()

	metrics, err := observability.NewWiringMetrics(observability.Meter(base.Name))
	if err != nil {
		return nil, fmt.Errorf("wiring metrics: %w", err)
	}

	dispatcher := component.NewDispatcher(
		component.WithTimeout(base.Wiring.HookTimeout),
		component.WithObserver(metrics.ObserveBinding),
		component.WithLogger(logger.Get(logger.NameLifecycle)),
	)
	wiringOpts := []di.Option{
		di.WithLogger(logger.Get(logger.NameWiring)),
		di.WithDispatcher(dispatcher),
		di.WithObserver(metrics),
	}
	if o.configSource != nil {
		wiringOpts = append(wiringOpts, di.WithConfigSource(o.configSource))
	}
	wiringOpts = append(wiringOpts, o.wiringOptions...)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Wiring:          di.NewWiringContext(wiringOpts...),
		Logger:          logger.Get(logger.NameBootstrap),
		Metrics:         metrics,
		gracefulTimeout: 15 * time.Second,
		discoverers:     o.discoverers,
		periodic:        o.periodic,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if err := app.provideBuiltins(base); err != nil {
		return nil, err
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// provideBuiltins registers the config and the logger so components can
// depend on them.
func (a *App[C]) provideBuiltins(base *config.ServiceConfig) error {
	builtins := []any{a.Cfg, a.Logger}
	if reflect.TypeOf(a.Cfg) != reflect.TypeOf(base) {
		builtins = append(builtins, base)
	}
	for _, inst := range builtins {
		if err := a.Wiring.RegisterInstance(reflect.TypeOf(inst), inst); err != nil {
			return fmt.Errorf("register %T: %w", inst, err)
		}
	}
	return nil
}

// OnConfigure registers a callback that runs after discovered components are
// submitted and before wiring is finalized. Use it to register providers
// that do not come from a descriptor.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Health polls every wired component that reports its own health.
func (a *App[C]) Health(ctx context.Context) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(a.Name, a.Version)
	sh.RunID = a.Wiring.ID()

	comps := a.Wiring.Components()
	names := make([]string, len(comps))
	instances := make([]any, len(comps))
	for i, c := range comps {
		names[i], instances[i] = c.Name, c.Instance
	}
	sh.Check(ctx, names, instances)
	return sh
}

// ReadyCheck verifies that all wired components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Health(ctx).Components {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run executes the full application lifecycle for long-running services:
// Wire → Configure → Finalize → POST_INIT → OnStart hooks → Schedule →
// ReadyCheck → OnReady hooks → Block on signal → Graceful Shutdown.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop(context.WithoutCancel(ctx))
}

// RunTask executes a finite task with the full bootstrap lifecycle.
// Unlike Run(), it does not block on shutdown signals. It runs the task
// function and gracefully shuts down when the task completes or the context
// is canceled (e.g., via SIGINT/SIGTERM).
//
// Example:
//
//	app, _ := bootstrap.NewApp(&cfg, bootstrap.WithComponents(descs...))
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return processData(ctx)
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(context.WithoutCancel(ctx)); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// startup performs the common initialization sequence shared by Run and RunTask.
func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	base := a.Cfg.GetServiceConfig()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":              a.Name,
		"version":           a.Version,
		logger.FieldRunID:   a.Wiring.ID(),
		"diagnostics":       base.Wiring.Diagnostics.Enabled,
		"telemetry_enabled": base.Wiring.Telemetry.Enabled,
	})

	stopTelemetry, err := initTelemetry(ctx, base)
	if err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	a.stopTelemetry = stopTelemetry

	if err := a.wire(ctx); err != nil {
		return a.abort(fmt.Errorf("wiring failed: %w", err))
	}
	if err := a.configure(ctx); err != nil {
		return a.abort(fmt.Errorf("configuration failed: %w", err))
	}
	if err := a.Wiring.FinalizeWiring(!base.Wiring.KeepWaiting); err != nil {
		return a.abort(fmt.Errorf("wiring failed: %w", err))
	}

	a.postInit = true
	if err := a.Wiring.RunLifecycle(ctx, component.PhasePostInit); err != nil {
		return a.fail(fmt.Errorf("post-init failed: %w", err))
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return a.fail(fmt.Errorf("onStart hook failed: %w", err))
	}

	a.scheduler = schedule.New(a.Wiring.Dispatcher().Periodic(),
		schedule.WithLogger(logger.Get(logger.NameSchedule)),
		schedule.WithTimeout(base.Wiring.HookTimeout),
		schedule.WithTelemetry(a.Name, a.Wiring.ID(), a.Metrics),
		schedule.WithInterceptors(a.periodic...),
	)
	if a.scheduler.Len() > 0 {
		if err := a.scheduler.Start(context.WithoutCancel(ctx)); err != nil {
			return a.fail(fmt.Errorf("scheduler start failed: %w", err))
		}
	}

	if base.Wiring.Diagnostics.Enabled {
		a.diagnostics = diagnostics.New(base.Wiring.Diagnostics, a.sources(), logger.Get("diagnostics"))
		if err := a.diagnostics.Start(ctx); err != nil {
			a.diagnostics = nil
			return a.fail(err)
		}
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return a.fail(fmt.Errorf("onReady hook failed: %w", err))
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary(ctx)
	return nil
}

// wire asks every discoverer for declarations, validates them all and
// submits them in order.
func (a *App[C]) wire(ctx context.Context) error {
	var decls []Declaration
	for _, d := range a.discoverers {
		found, err := d.Discover(ctx)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		decls = append(decls, found...)
	}

	descs := make([]di.Descriptor, len(decls))
	for i, d := range decls {
		descs[i] = d.Descriptor
	}
	if err := validation.ValidateDescriptors(descs); err != nil {
		return err
	}

	a.Logger.Info("Submitting components", map[string]interface{}{
		logger.FieldCount: len(decls),
	})
	for _, d := range decls {
		if err := a.Wiring.Submit(d.Descriptor, d.Args...); err != nil {
			return err
		}
	}
	return nil
}

// configure runs registered configuration callbacks.
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}

	a.Logger.Info("Running configuration callbacks", map[string]interface{}{
		logger.FieldCount: len(a.onConfigure),
	})
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (a *App[C]) sources() diagnostics.Sources {
	return diagnostics.Sources{
		Service:  a.Name,
		Version:  a.Version,
		Wiring:   a.Wiring.Snapshot,
		Health:   a.Health,
		Schedule: a.scheduler.Stats,
	}
}

// DisplaySummary prints the startup summary to stdout.
func (a *App[C]) DisplaySummary(ctx context.Context) {
	a.Summary.Collect(a.Wiring, a.Health(ctx))
	if a.diagnostics != nil {
		a.Summary.TrackEndpoint("diagnostics", "http://"+a.diagnostics.Addr())
	}
	a.Summary.Display(os.Stdout)
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
// The graceful timeout is applied on top of ctx, so the earlier deadline wins.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop(ctx)
}

// abort releases what startup acquired before POST_INIT was attempted.
func (a *App[C]) abort(err error) error {
	a.stopped = true
	if a.stopTelemetry != nil {
		if terr := a.stopTelemetry(context.Background()); terr != nil {
			a.Logger.Warn("Telemetry shutdown error", map[string]interface{}{
				logger.FieldError: terr.Error(),
			})
		}
	}
	return err
}

// fail shuts down after POST_INIT was attempted, so PRE_SHUTDOWN still runs.
func (a *App[C]) fail(err error) error {
	if stopErr := a.stop(context.Background()); stopErr != nil {
		a.Logger.Error("Shutdown after failed startup reported errors", map[string]interface{}{
			logger.FieldError: stopErr.Error(),
		})
	}
	return err
}

// stop gracefully shuts everything down within the graceful timeout, bounded
// by parent. Subsequent calls are no-ops.
func (a *App[C]) stop(parent context.Context) error {
	if a.stopped {
		return nil
	}
	a.stopped = true

	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(parent, a.gracefulTimeout)
	defer cancel()

	var errs []error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		errs = append(errs, err)
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.diagnostics != nil {
		if err := a.diagnostics.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if a.postInit {
		if err := a.Wiring.RunLifecycle(ctx, component.PhasePreShutdown); err != nil {
			a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			errs = append(errs, err)
		}
	}

	if a.stopTelemetry != nil {
		if err := a.stopTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}
