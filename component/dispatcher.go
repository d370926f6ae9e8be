package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/logger"
)

var (
	// ErrNotFinalized is returned when POST_INIT is requested before wiring was finalized.
	ErrNotFinalized = errors.New("wiring has not been finalized")
	// ErrPhaseOrder is returned when a phase is requested before the phase it depends on.
	ErrPhaseOrder = errors.New("lifecycle phase requested out of order")
)

// Phase identifies when a lifecycle binding fires.
type Phase int

const (
	// PhasePreInit fires while a component is being set up, before it is published.
	PhasePreInit Phase = iota
	// PhasePostInit fires once after every component was submitted and wiring was finalized.
	PhasePostInit
	// PhasePreShutdown fires once during teardown, in reverse registration order.
	PhasePreShutdown
)

// String returns the phase name as it appears in logs and diagnostics.
func (p Phase) String() string {
	switch p {
	case PhasePreInit:
		return "PRE_INIT"
	case PhasePostInit:
		return "POST_INIT"
	case PhasePreShutdown:
		return "PRE_SHUTDOWN"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range []Phase{PhasePreInit, PhasePostInit, PhasePreShutdown} {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// Binding ties one method of one component instance to a lifecycle phase.
type Binding struct {
	Phase Phase
	// Owner is the name of the component the method belongs to.
	Owner string
	// Name is the method name.
	Name   string
	Invoke func(ctx context.Context) error
	// Interval > 0 marks a periodic binding; it is handed to a scheduler
	// after POST_INIT instead of being invoked by the dispatcher.
	Interval time.Duration
}

// Periodic reports whether the binding runs on an interval.
func (b Binding) Periodic() bool { return b.Interval > 0 }

// BindingState is a read-only view of a recorded binding.
type BindingState struct {
	Phase    string        `json:"phase"`
	Owner    string        `json:"owner"`
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval,omitempty"`
	Fired    bool          `json:"fired"`
	Error    string        `json:"error,omitempty"`
}

// InvokeObserver is notified after each binding invocation.
type InvokeObserver func(ctx context.Context, b Binding, elapsed time.Duration, err error)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds every single binding invocation.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithObserver registers a callback invoked after each binding runs.
func WithObserver(o InvokeObserver) DispatcherOption {
	return func(disp *Dispatcher) { disp.observers = append(disp.observers, o) }
}

// WithLogger sets the logger used by the dispatcher.
func WithLogger(l *logger.Logger) DispatcherOption {
	return func(disp *Dispatcher) { disp.log = l }
}

type bindingEntry struct {
	binding Binding
	fired   bool
	err     error
}

// Dispatcher records lifecycle bindings in creation order and fires each of
// them exactly once in its phase. POST_INIT runs in creation order and
// PRE_SHUTDOWN in reverse creation order.
type Dispatcher struct {
	mu          sync.Mutex
	entries     []*bindingEntry
	sealed      bool
	postInitRan bool
	timeout     time.Duration
	observers   []InvokeObserver
	log         *logger.Logger
}

// NewDispatcher creates an empty, unsealed dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get(logger.NameLifecycle)
	}
	return d
}

// Record adds a POST_INIT or PRE_SHUTDOWN binding. PRE_INIT bindings go
// through Fire instead.
func (d *Dispatcher) Record(b Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, &bindingEntry{binding: b})
	d.log.Debug("Lifecycle binding recorded", map[string]interface{}{
		logger.FieldComponent: b.Owner,
		logger.FieldMember:    b.Name,
		logger.FieldPhase:     b.Phase.String(),
	})
}

// Fire records b and invokes it immediately. It is used for PRE_INIT, which
// runs synchronously as part of a component's setup.
func (d *Dispatcher) Fire(ctx context.Context, b Binding) error {
	entry := &bindingEntry{binding: b, fired: true}
	d.mu.Lock()
	d.entries = append(d.entries, entry)
	d.mu.Unlock()

	err := d.invoke(ctx, b)
	if err != nil {
		d.mu.Lock()
		entry.err = err
		d.mu.Unlock()
	}
	return err
}

// Seal marks wiring as finalized so POST_INIT may run.
func (d *Dispatcher) Seal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sealed = true
}

// Sealed reports whether Seal was called.
func (d *Dispatcher) Sealed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sealed
}

// Run fires every binding of phase that has not fired yet.
//
// POST_INIT stops at the first failing binding. PRE_SHUTDOWN keeps going and
// returns all failures joined. Periodic bindings are never invoked here.
func (d *Dispatcher) Run(ctx context.Context, phase Phase) error {
	switch phase {
	case PhasePostInit:
		return d.runPostInit(ctx)
	case PhasePreShutdown:
		return d.runPreShutdown(ctx)
	default:
		return apperrors.LifecycleOrder(phase.String(), "fires during component setup only").WithCause(ErrPhaseOrder)
	}
}

func (d *Dispatcher) runPostInit(ctx context.Context) error {
	d.mu.Lock()
	if !d.sealed {
		d.mu.Unlock()
		return apperrors.LifecycleOrder(PhasePostInit.String(), "wiring has not been finalized").WithCause(ErrNotFinalized)
	}
	d.postInitRan = true
	due := d.take(PhasePostInit, false)
	d.mu.Unlock()

	d.log.Info("Running lifecycle phase", map[string]interface{}{
		logger.FieldPhase: PhasePostInit.String(),
		logger.FieldCount: len(due),
	})

	for _, entry := range due {
		if err := d.invoke(ctx, entry.binding); err != nil {
			d.setErr(entry, err)
			return err
		}
	}
	return nil
}

func (d *Dispatcher) runPreShutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.postInitRan {
		d.mu.Unlock()
		return apperrors.LifecycleOrder(PhasePreShutdown.String(), "POST_INIT has not run").WithCause(ErrPhaseOrder)
	}
	due := d.take(PhasePreShutdown, true)
	d.mu.Unlock()

	d.log.Info("Running lifecycle phase", map[string]interface{}{
		logger.FieldPhase: PhasePreShutdown.String(),
		logger.FieldCount: len(due),
	})

	var errs []error
	for _, entry := range due {
		if err := d.invoke(ctx, entry.binding); err != nil {
			d.setErr(entry, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// take marks and returns the unfired, non-periodic bindings of phase.
// The caller holds d.mu.
func (d *Dispatcher) take(phase Phase, reverse bool) []*bindingEntry {
	var due []*bindingEntry
	for _, entry := range d.entries {
		if entry.binding.Phase != phase || entry.fired || entry.binding.Periodic() {
			continue
		}
		entry.fired = true
		due = append(due, entry)
	}
	if reverse {
		for i, j := 0, len(due)-1; i < j; i, j = i+1, j-1 {
			due[i], due[j] = due[j], due[i]
		}
	}
	return due
}

func (d *Dispatcher) setErr(entry *bindingEntry, err error) {
	d.mu.Lock()
	entry.err = err
	d.mu.Unlock()
}

func (d *Dispatcher) invoke(ctx context.Context, b Binding) (err error) {
	ctx = logger.ContextWithPhase(ctx, b.Phase.String())
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = apperrors.InvocationFailure(b.Owner, b.Name, err)
			d.log.Error("Lifecycle method failed", map[string]interface{}{
				logger.FieldComponent: b.Owner,
				logger.FieldMember:    b.Name,
				logger.FieldPhase:     b.Phase.String(),
				logger.FieldError:     err.Error(),
			})
		}
		for _, o := range d.observers {
			o(ctx, b, time.Since(start), err)
		}
	}()

	return b.Invoke(ctx)
}

// Periodic returns the periodic bindings in creation order.
func (d *Dispatcher) Periodic() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Binding
	for _, entry := range d.entries {
		if entry.binding.Periodic() {
			out = append(out, entry.binding)
		}
	}
	return out
}

// Bindings returns every recorded binding in creation order.
func (d *Dispatcher) Bindings() []BindingState {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]BindingState, 0, len(d.entries))
	for _, entry := range d.entries {
		s := BindingState{
			Phase:    entry.binding.Phase.String(),
			Owner:    entry.binding.Owner,
			Name:     entry.binding.Name,
			Interval: entry.binding.Interval,
			Fired:    entry.fired,
		}
		if entry.err != nil {
			s.Error = entry.err.Error()
		}
		out = append(out, s)
	}
	return out
}
