package di

import (
	"context"
	"reflect"

	"github.com/kbukum/wirekit/component"
	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/logger"
)

// selectConstructor picks the constructor whose external parameters accept
// args in order and that resolves the most parameters by type. Ties go to
// the constructor declared first.
func selectConstructor(desc Descriptor, args []any) (Constructor, error) {
	best, bestMagic := -1, -1
	for i, c := range desc.Constructors {
		if !acceptsExternal(c, args) {
			continue
		}
		if m := c.magicCount(); m > bestMagic {
			best, bestMagic = i, m
		}
	}
	if best < 0 {
		names := make([]string, len(args))
		for i, a := range args {
			names[i] = typeName(reflect.TypeOf(a))
		}
		return Constructor{}, apperrors.NoSuitableConstructor(desc.name(), names)
	}
	return desc.Constructors[best], nil
}

func acceptsExternal(c Constructor, args []any) bool {
	i := 0
	for _, p := range c.Params {
		if !p.External {
			continue
		}
		if i >= len(args) || !assignable(args[i], p.Type) {
			return false
		}
		i++
	}
	return i == len(args)
}

func assignable(v any, t reflect.Type) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

// construct plans the constructor arguments. Once all of them are available
// the instance is built and its members are injected.
func (w *WiringContext) construct(desc Descriptor, name string, ctor Constructor, externalArgs []any) error {
	p := newPending(name, len(ctor.Params), func(args []any) error {
		instance, err := invokeSafe(func() (any, error) { return ctor.Invoke(args) })
		if err != nil {
			return invocationFailure(name, ctor.Name, err)
		}
		return w.injectMembers(desc, name, instance)
	})

	ext := 0
	for i, param := range ctor.Params {
		if param.External {
			p.set(i, externalArgs[ext])
			ext++
			continue
		}
		if err := w.plan(name, param.Point, p, i); err != nil {
			return err
		}
	}
	return p.release()
}

// injectMembers plans every field and setter argument of a built instance.
// Fields are assigned first, then setters run in declaration order.
func (w *WiringContext) injectMembers(desc Descriptor, name string, instance any) error {
	points := make([]Point, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		points = append(points, f.Point)
	}
	for _, s := range desc.Setters {
		points = append(points, s.Params...)
	}

	p := newPending(name, len(points), func(args []any) error {
		for i, f := range desc.Fields {
			value := args[i]
			if _, err := invokeSafe(func() (any, error) { return nil, f.Assign(instance, value) }); err != nil {
				return invocationFailure(name, f.Name, err)
			}
		}
		off := len(desc.Fields)
		for _, s := range desc.Setters {
			sargs := args[off : off+len(s.Params)]
			off += len(s.Params)
			if _, err := invokeSafe(func() (any, error) { return nil, s.Invoke(instance, sargs) }); err != nil {
				return invocationFailure(name, s.Name, err)
			}
		}
		return w.complete(desc, name, instance)
	})

	for i, pt := range points {
		if err := w.plan(name, pt, p, i); err != nil {
			return err
		}
	}
	return p.release()
}

// complete runs PRE_INIT, records the remaining lifecycle bindings, publishes
// the instance under its own type and its aliases and plans its factories.
func (w *WiringContext) complete(desc Descriptor, name string, instance any) error {
	for _, hook := range desc.Hooks {
		b := component.Binding{
			Phase:    hook.Phase,
			Owner:    name,
			Name:     hook.Name,
			Interval: hook.Interval,
		}
		b.Invoke = func(ctx context.Context) error { return hook.Invoke(ctx, instance) }
		if hook.Phase == component.PhasePreInit && !b.Periodic() {
			if err := w.dispatcher.Fire(w.ctx, b); err != nil {
				return err
			}
			continue
		}
		w.dispatcher.Record(b)
	}

	w.components = append(w.components, Registered{Name: name, Type: desc.Type, Instance: instance})
	w.observer.Completed(name)
	w.log.Debug("Component completed", map[string]interface{}{
		logger.FieldComponent: name,
	})

	var errs []error
	for _, t := range append([]reflect.Type{desc.Type}, desc.As...) {
		if err := w.RegisterInstance(t, instance); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range desc.Factories {
		if err := w.planFactory(name, f, instance); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// planFactory plans the arguments of a providing method. Once they are
// available the method becomes the provider of its result type.
func (w *WiringContext) planFactory(name string, f Factory, instance any) error {
	p := newPending(name, len(f.Params), func(args []any) error {
		fn := func() (any, error) {
			v, err := invokeSafe(func() (any, error) { return f.Invoke(instance, args) })
			if err != nil {
				return nil, invocationFailure(name, f.Name, err)
			}
			return v, nil
		}
		return w.Register(f.Type, NewFactory(fn, f.Persist))
	})

	for i, pt := range f.Params {
		if err := w.plan(name, pt, p, i); err != nil {
			return err
		}
	}
	return p.release()
}

// plan fills slot of p for pt now if it can, otherwise leaves a wire request
// in the ledger whose delivery fills it later.
func (w *WiringContext) plan(consumer string, pt Point, p *pendingConstruction, slot int) error {
	if pt.ConfigKey != "" {
		return w.planConfig(consumer, pt, p, slot)
	}

	if prov, ok := w.providers.get(pt.Type); ok {
		v, err := w.get(pt.Type, prov)
		if err != nil {
			return err
		}
		return p.fill(slot, v)
	}

	if w.canWait {
		r := &WireRequest{
			Consumer: consumer,
			Member:   pt.Name,
			Type:     pt.Type,
			Required: pt.Required,
			deliver:  func(v any) error { return p.fill(slot, v) },
		}
		w.ledger.enqueue(r)
		w.observer.Deferred(consumer, typeName(pt.Type))
		w.log.Debug("Dependency deferred", map[string]interface{}{
			logger.FieldConsumer: consumer,
			logger.FieldMember:   pt.Name,
			logger.FieldType:     typeName(pt.Type),
		})
		return nil
	}

	if !pt.Required {
		w.substituteDefault(consumer, pt.Name, pt.Type)
		return p.fill(slot, w.defaultFor(pt.Type))
	}

	err := unresolved(consumer, pt)
	w.log.Error("Required dependency missing", map[string]interface{}{
		logger.FieldConsumer: consumer,
		logger.FieldType:     typeName(pt.Type),
	})
	return err
}

func (w *WiringContext) planConfig(consumer string, pt Point, p *pendingConstruction, slot int) error {
	var (
		v     any
		found bool
		err   error
	)
	if w.config != nil {
		v, found, err = w.config.Lookup(pt.ConfigKey, pt.Type)
	} else {
		err = ErrNoConfigSource
		if !pt.Required {
			err = nil
		}
	}
	if err != nil {
		return apperrors.ConfigurationAccess(consumer, pt.ConfigKey, err)
	}
	if !found {
		if pt.Required {
			return apperrors.ConfigurationAccess(consumer, pt.ConfigKey, ErrConfigKeyNotFound)
		}
		v = w.defaultFor(pt.Type)
	}
	return p.fill(slot, v)
}

func (w *WiringContext) substituteDefault(consumer, member string, t reflect.Type) {
	w.observer.Defaulted(consumer, typeName(t))
	w.log.Warn("Optional dependency defaulted", map[string]interface{}{
		logger.FieldConsumer: consumer,
		logger.FieldMember:   member,
		logger.FieldType:     typeName(t),
	})
}
