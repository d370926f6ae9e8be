package di

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/wirekit/component"
	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/logger"
	"github.com/kbukum/wirekit/observability"
)

// ConfigSource supplies configuration-valued injection points.
type ConfigSource interface {
	// Lookup returns the value stored under key converted to t. found is
	// false when the key is absent.
	Lookup(key string, t reflect.Type) (value any, found bool, err error)
}

// Observer is notified of wiring events. Implementations must be cheap; they
// run on the wiring call stack.
type Observer interface {
	Registered(typ string, replaced bool)
	Deferred(consumer, typ string)
	Delivered(consumer, typ string)
	Defaulted(consumer, typ string)
	Completed(component string)
	Finalized(elapsed time.Duration, waiting int, err error)
}

type nopObserver struct{}

func (nopObserver) Registered(string, bool)             {}
func (nopObserver) Deferred(string, string)             {}
func (nopObserver) Delivered(string, string)            {}
func (nopObserver) Defaulted(string, string)            {}
func (nopObserver) Completed(string)                    {}
func (nopObserver) Finalized(time.Duration, int, error) {}

// Option configures a WiringContext.
type Option func(*WiringContext)

// WithLogger sets the logger used for wiring events.
func WithLogger(l *logger.Logger) Option {
	return func(w *WiringContext) { w.log = l }
}

// WithDefault sets the value substituted for optional points of type t that
// nothing provides. Without it the zero value of t is used.
func WithDefault(t reflect.Type, v any) Option {
	return func(w *WiringContext) { w.defaults[t] = v }
}

// WithConfigSource sets the source for configuration-valued points.
func WithConfigSource(src ConfigSource) Option {
	return func(w *WiringContext) { w.config = src }
}

// WithObserver sets the observer notified of wiring events.
func WithObserver(o Observer) Option {
	return func(w *WiringContext) { w.observer = o }
}

// WithDispatcher replaces the lifecycle dispatcher.
func WithDispatcher(d *component.Dispatcher) Option {
	return func(w *WiringContext) { w.dispatcher = d }
}

// WithBaseContext sets the context PRE_INIT methods and spans derive from.
func WithBaseContext(ctx context.Context) Option {
	return func(w *WiringContext) { w.ctx = ctx }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(w *WiringContext) { w.id = id }
}

// Registered is a component instance that completed its setup.
type Registered struct {
	Name     string
	Type     reflect.Type
	Instance any
}

// WiringContext owns every provider, wait and lifecycle binding of one
// application run.
//
// Wiring is synchronous and single-threaded: Submit, Register and
// FinalizeWiring must be called from one goroutine. Cascades re-enter the
// context on the same call stack. Snapshot and Components may be read from
// other goroutines once wiring is over.
type WiringContext struct {
	id         string
	providers  *providerTable
	ledger     *waitLedger
	canWait    bool
	finalized  bool
	defaults   map[reflect.Type]any
	config     ConfigSource
	dispatcher *component.Dispatcher
	observer   Observer
	log        *logger.Logger
	ctx        context.Context

	// inflight maps each type a submitted component will provide to that
	// component, until the provider exists.
	inflight   map[reflect.Type]string
	components []Registered
}

// NewWiringContext creates an empty context with waiting enabled.
func NewWiringContext(opts ...Option) *WiringContext {
	w := &WiringContext{
		id:        uuid.NewString(),
		providers: newProviderTable(),
		ledger:    newWaitLedger(),
		canWait:   true,
		defaults:  make(map[reflect.Type]any),
		observer:  nopObserver{},
		ctx:       context.Background(),
		inflight:  make(map[reflect.Type]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get(logger.NameWiring)
	}
	w.log = w.log.WithFields(map[string]interface{}{logger.FieldRunID: w.id})
	if w.dispatcher == nil {
		w.dispatcher = component.NewDispatcher(component.WithLogger(w.log))
	}
	w.ctx = logger.ContextWithRunID(w.ctx, w.id)
	return w
}

// ID returns the run identifier.
func (w *WiringContext) ID() string { return w.id }

// CanWait reports whether unresolved points still defer instead of failing.
func (w *WiringContext) CanWait() bool { return w.canWait }

// Finalized reports whether FinalizeWiring has succeeded.
func (w *WiringContext) Finalized() bool { return w.finalized }

// Dispatcher returns the lifecycle dispatcher of this run.
func (w *WiringContext) Dispatcher() *component.Dispatcher { return w.dispatcher }

// Components returns the components that completed setup, in completion order.
func (w *WiringContext) Components() []Registered {
	out := make([]Registered, len(w.components))
	copy(out, w.components)
	return out
}

// Submit sets up one component: it selects a constructor for externalArgs and
// plans every injection point. Points that cannot be satisfied yet wait in
// the ledger; the component completes as soon as the last one arrives, which
// may be during this call or during a later Register.
func (w *WiringContext) Submit(desc Descriptor, externalArgs ...any) error {
	name := desc.name()
	ctx, span := observability.StartSpan(w.ctx, observability.SpanWiringSubmit)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrComponent, name)

	ctor, err := selectConstructor(desc, externalArgs)
	if err != nil {
		observability.SetSpanError(ctx, err)
		w.log.Error("No suitable constructor", map[string]interface{}{
			logger.FieldComponent: name,
			logger.FieldError:     err.Error(),
		})
		return err
	}

	w.log.Debug("Submitting component", map[string]interface{}{
		logger.FieldComponent: name,
		logger.FieldMember:    ctor.Name,
	})
	w.markInflight(desc, name)

	if err := w.construct(desc, name, ctor, externalArgs); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// Register makes p the provider of t, replacing any previous one, and
// delivers to every consumer waiting for t. Each delivery reads the provider
// current at that moment. Delivery failures are joined and returned after
// every waiter was tried. A waiter the provider failed to serve stays in the
// ledger.
func (w *WiringContext) Register(t reflect.Type, p Provider) error {
	if t == nil || p == nil {
		return apperrors.InvalidInput("provider", "type and provider are required")
	}

	replaced := w.providers.put(t, p)
	delete(w.inflight, t)
	w.observer.Registered(typeName(t), replaced)

	reqs := w.ledger.take(t)
	w.log.Debug("Provider registered", map[string]interface{}{
		logger.FieldType:    typeName(t),
		logger.FieldPending: len(reqs),
	})

	var errs []error
	for _, r := range reqs {
		if r.done {
			continue
		}
		current, _ := w.providers.get(t)
		v, err := w.get(t, current)
		if err != nil {
			// The consumer keeps waiting; a later registration may serve it,
			// otherwise finalization reports it.
			w.ledger.requeue(r)
			errs = append(errs, err)
			continue
		}
		r.done = true
		w.observer.Delivered(r.Consumer, typeName(t))
		if err := r.deliver(v); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// RegisterInstance registers an already built instance as the provider of t.
func (w *WiringContext) RegisterInstance(t reflect.Type, instance any) error {
	return w.Register(t, Constant(instance))
}

// Resolve returns the instance currently provided for t. It never constructs
// components; found is false when t has no provider.
func (w *WiringContext) Resolve(t reflect.Type) (instance any, found bool, err error) {
	p, ok := w.providers.get(t)
	if !ok {
		return nil, false, nil
	}
	v, err := w.get(t, p)
	return v, true, err
}

// RunLifecycle fires every pending binding of phase. POST_INIT requires a
// successful FinalizeWiring; PRE_SHUTDOWN requires POST_INIT.
func (w *WiringContext) RunLifecycle(ctx context.Context, phase component.Phase) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanLifecyclePhase)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrPhase, phase.String())

	ctx = logger.ContextWithRunID(ctx, w.id)
	if err := w.dispatcher.Run(ctx, phase); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

func (w *WiringContext) get(t reflect.Type, p Provider) (any, error) {
	v, err := invokeSafe(p.Get)
	if err != nil {
		return nil, invocationFailure(typeName(t), "Get", err)
	}
	return v, nil
}

func (w *WiringContext) defaultFor(t reflect.Type) any {
	if v, ok := w.defaults[t]; ok {
		return v
	}
	return reflect.Zero(t).Interface()
}

func (w *WiringContext) markInflight(desc Descriptor, name string) {
	for _, t := range desc.provides() {
		if _, ok := w.providers.get(t); !ok {
			w.inflight[t] = name
		}
	}
}
