package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/wirekit/component"
	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/intercept"
	"github.com/kbukum/wirekit/logger"
	"github.com/kbukum/wirekit/observability"
)

// ErrRunning is returned by Start when the runner is already running.
var ErrRunning = errors.New("schedule: runner already started")

// Stat is the run history of one periodic method.
type Stat struct {
	Owner     string        `json:"owner"`
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

type job struct {
	binding component.Binding

	mu   sync.Mutex
	stat Stat
}

func (j *job) record(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stat.Runs++
	j.stat.LastRun = at
	j.stat.LastError = ""
	if err != nil {
		j.stat.Failures++
		j.stat.LastError = err.Error()
	}
}

// Runner invokes periodic lifecycle methods on their intervals between
// POST_INIT and PRE_SHUTDOWN. Failures are logged and recorded; they never
// stop the method from running again.
type Runner struct {
	jobs      []*job
	log       *logger.Logger
	timeout   time.Duration
	service   string
	runID     string
	metrics   *observability.WiringMetrics
	immediate bool
	sem       *semaphore.Weighted
	around    []intercept.Interceptor
	chain     intercept.Interceptor

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithTimeout bounds each invocation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithConcurrency caps how many periodic methods may run at the same time.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithImmediate makes every method run once as soon as the runner starts,
// before its first tick.
func WithImmediate() Option {
	return func(r *Runner) { r.immediate = true }
}

// WithInterceptors wraps every run in interceptors, outermost first. Panics
// are always recovered outside of them.
func WithInterceptors(interceptors ...intercept.Interceptor) Option {
	return func(r *Runner) { r.around = append(r.around, interceptors...) }
}

// WithTelemetry traces each run and records it in metrics, which may be nil.
func WithTelemetry(service, runID string, metrics *observability.WiringMetrics) Option {
	return func(r *Runner) {
		r.service = service
		r.runID = runID
		r.metrics = metrics
	}
}

// New creates a runner for the periodic entries of bindings. Bindings without
// an interval are ignored.
func New(bindings []component.Binding, opts ...Option) *Runner {
	r := &Runner{}
	for _, b := range bindings {
		if !b.Periodic() {
			continue
		}
		r.jobs = append(r.jobs, &job{
			binding: b,
			stat:    Stat{Owner: b.Owner, Name: b.Name, Interval: b.Interval},
		})
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get(logger.NameSchedule)
	}
	r.chain = intercept.Chain(append([]intercept.Interceptor{intercept.Recover()}, r.around...)...)
	return r
}

// Len returns the number of scheduled methods.
func (r *Runner) Len() int { return len(r.jobs) }

// Start launches one loop per method. The loops stop when ctx is cancelled or
// Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range r.jobs {
		g.Go(func() error {
			r.loop(gctx, j)
			return nil
		})
	}
	r.cancel, r.group = cancel, g

	r.log.Info("Scheduler started", map[string]interface{}{
		logger.FieldCount: len(r.jobs),
	})
	return nil
}

// Stop cancels every loop and waits for in-flight runs to return. Stopping a
// runner that is not running is a no-op.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel, g := r.cancel, r.group
	r.cancel, r.group = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := g.Wait()
	r.log.Info("Scheduler stopped")
	return err
}

// Running reports whether Start was called without a matching Stop.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stats returns a copy of every method's run history, in binding order.
func (r *Runner) Stats() []Stat {
	out := make([]Stat, len(r.jobs))
	for i, j := range r.jobs {
		j.mu.Lock()
		out[i] = j.stat
		j.mu.Unlock()
	}
	return out
}

func (r *Runner) loop(ctx context.Context, j *job) {
	if r.immediate {
		r.run(ctx, j)
	}

	ticker := time.NewTicker(j.binding.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.run(ctx, j)
		}
	}
}

func (r *Runner) run(ctx context.Context, j *job) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer r.sem.Release(1)
	}
	if ctx.Err() != nil {
		return
	}

	b := j.binding
	oc := observability.NewOperationContext(r.service, b.Owner+"."+b.Name, r.runID, r.metrics)
	runCtx, span := oc.StartSpanForOperation(ctx, observability.SpanScheduledRun)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
		defer cancel()
	}

	err := r.invoke(runCtx, b)
	oc.EndOperation(runCtx, span, err)
	j.record(oc.StartTime, err)

	if err != nil {
		r.log.Warn("Periodic method failed", map[string]interface{}{
			logger.FieldComponent: b.Owner,
			logger.FieldMember:    b.Name,
			logger.FieldError:     err.Error(),
		})
	}
}

func (r *Runner) invoke(ctx context.Context, b component.Binding) error {
	inv := &intercept.Invocation{Target: b.Owner, Method: b.Name}
	_, err := r.chain.Intercept(ctx, inv, func(ctx context.Context, _ *intercept.Invocation) (any, error) {
		if err := b.Invoke(ctx); err != nil {
			return nil, apperrors.InvocationFailure(b.Owner, b.Name, err)
		}
		return nil, nil
	})
	return err
}
