package di

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/kbukum/wirekit/component"
)

var (
	errorType   = TypeOf[error]()
	contextType = TypeOf[context.Context]()
)

// PointOption adjusts one parameter of a constructor, setter or factory.
type PointOption struct {
	index    int
	external bool
	apply    func(*Point)
}

// External marks parameter i as supplied by the caller of Submit.
func External(i int) PointOption {
	return PointOption{index: i, external: true}
}

// Optional marks parameter i as optional: once waiting is over it receives
// the default value of its type instead of failing.
func Optional(i int) PointOption {
	return PointOption{index: i, apply: func(p *Point) { p.Required = false }}
}

// ConfigValue makes parameter i configuration-valued, read from key.
func ConfigValue(i int, key string) PointOption {
	return PointOption{index: i, apply: func(p *Point) { p.ConfigKey = key }}
}

// Builder assembles the Descriptor of component type T. The first error is
// kept and reported by Build.
type Builder[T any] struct {
	desc Descriptor
	err  error
}

// Describe starts the descriptor of T. An empty name defaults to the type name.
func Describe[T any](name string) *Builder[T] {
	t := TypeOf[T]()
	if name == "" {
		name = typeName(t)
	}
	return &Builder[T]{desc: Descriptor{Name: name, Type: t}}
}

func (b *Builder[T]) fail(format string, args ...any) *Builder[T] {
	if b.err == nil {
		b.err = fmt.Errorf("di: %s: %s", b.desc.Name, fmt.Sprintf(format, args...))
	}
	return b
}

// Constructor declares fn as a way to build T. fn returns T, or T and an
// error; its parameters are resolved by type unless marked External.
func (b *Builder[T]) Constructor(fn any, opts ...PointOption) *Builder[T] {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return b.fail("constructor must be a function, got %T", fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return b.fail("constructor %s must not be variadic", funcName(fn))
	}
	if err := checkResults(ft, b.desc.Type); err != nil {
		return b.fail("constructor %s: %v", funcName(fn), err)
	}

	name := funcName(fn)
	params := make([]Param, ft.NumIn())
	for i := range params {
		params[i] = Param{Point: Point{
			Type:     ft.In(i),
			Required: true,
			Kind:     KindConstructor,
			Name:     fmt.Sprintf("%s[%d]", name, i),
		}}
	}
	for _, opt := range opts {
		if opt.index < 0 || opt.index >= len(params) {
			return b.fail("constructor %s has no parameter %d", name, opt.index)
		}
		if opt.external {
			params[opt.index].External = true
		}
		if opt.apply != nil {
			opt.apply(&params[opt.index].Point)
		}
	}

	b.desc.Constructors = append(b.desc.Constructors, Constructor{
		Name:   name,
		Params: params,
		Invoke: func(args []any) (any, error) {
			in, err := callArgs(ft, 0, args)
			if err != nil {
				return nil, err
			}
			return results(fv.Call(in))
		},
	})
	return b
}

// Field declares the exported struct field called name as injectable. T must
// be a pointer to a struct.
func (b *Builder[T]) Field(name string, optional bool) *Builder[T] {
	t := b.desc.Type
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return b.fail("field injection needs a pointer to struct, got %s", typeName(t))
	}
	sf, ok := t.Elem().FieldByName(name)
	if !ok || !sf.IsExported() {
		return b.fail("no exported field %s", name)
	}
	b.addField(sf, optional, "")
	return b
}

// Tagged declares every struct field carrying a `wire` tag as injectable.
//
//	Repo  *Repo  `wire:""`
//	Cache Cache  `wire:"optional"`
//	Port  int    `wire:"config=server.port"`
func (b *Builder[T]) Tagged() *Builder[T] {
	t := b.desc.Type
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return b.fail("field injection needs a pointer to struct, got %s", typeName(t))
	}
	for i := 0; i < t.Elem().NumField(); i++ {
		sf := t.Elem().Field(i)
		tag, ok := sf.Tag.Lookup("wire")
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return b.fail("tagged field %s is not exported", sf.Name)
		}
		optional, key := parseWireTag(tag)
		b.addField(sf, optional, key)
	}
	return b
}

func parseWireTag(tag string) (optional bool, configKey string) {
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "optional":
			optional = true
		case strings.HasPrefix(part, "config="):
			configKey = strings.TrimPrefix(part, "config=")
		}
	}
	return optional, configKey
}

func (b *Builder[T]) addField(sf reflect.StructField, optional bool, configKey string) {
	index := sf.Index
	ft := sf.Type
	b.desc.Fields = append(b.desc.Fields, Field{
		Point: Point{
			Type:      ft,
			Required:  !optional,
			Kind:      KindField,
			Name:      sf.Name,
			ConfigKey: configKey,
		},
		Assign: func(instance, value any) error {
			v, err := argValue(ft, value)
			if err != nil {
				return err
			}
			reflect.ValueOf(instance).Elem().FieldByIndex(index).Set(v)
			return nil
		},
	})
}

// Setter declares a method, given as a method expression such as
// (*Service).SetCache, to be called after construction with every argument
// after the receiver resolved by type. It may return an error.
func (b *Builder[T]) Setter(name string, fn any, opts ...PointOption) *Builder[T] {
	fv, ft, ok := b.method(name, fn)
	if !ok {
		return b
	}
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && ft.Out(0) != errorType) {
		return b.fail("setter %s may only return an error", name)
	}
	params, ok := b.methodPoints(name, ft, KindSetter, opts)
	if !ok {
		return b
	}
	b.desc.Setters = append(b.desc.Setters, Setter{
		Name:   name,
		Params: params,
		Invoke: func(instance any, args []any) error {
			in, err := callArgs(ft, 1, args)
			if err != nil {
				return err
			}
			out := fv.Call(append([]reflect.Value{reflect.ValueOf(instance)}, in...))
			if len(out) == 1 && !out[0].IsNil() {
				return out[0].Interface().(error)
			}
			return nil
		},
	})
	return b
}

// Provides declares a method whose result becomes the single, shared instance
// of its result type once its arguments are resolved.
func (b *Builder[T]) Provides(name string, fn any, opts ...PointOption) *Builder[T] {
	return b.factory(name, fn, true, opts)
}

// ProvidesEach is Provides without persistence: every resolution of the
// result type calls the method again.
func (b *Builder[T]) ProvidesEach(name string, fn any, opts ...PointOption) *Builder[T] {
	return b.factory(name, fn, false, opts)
}

func (b *Builder[T]) factory(name string, fn any, persist bool, opts []PointOption) *Builder[T] {
	fv, ft, ok := b.method(name, fn)
	if !ok {
		return b
	}
	if ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
		return b.fail("factory %s must return a value, or a value and an error", name)
	}
	params, ok := b.methodPoints(name, ft, KindFactory, opts)
	if !ok {
		return b
	}
	b.desc.Factories = append(b.desc.Factories, Factory{
		Type:    ft.Out(0),
		Name:    name,
		Params:  params,
		Persist: persist,
		Invoke: func(instance any, args []any) (any, error) {
			in, err := callArgs(ft, 1, args)
			if err != nil {
				return nil, err
			}
			return results(fv.Call(append([]reflect.Value{reflect.ValueOf(instance)}, in...)))
		},
	})
	return b
}

// On binds a method to a lifecycle phase. fn is a method expression taking
// the receiver and optionally a context.Context, returning nothing or an error.
func (b *Builder[T]) On(phase component.Phase, name string, fn any) *Builder[T] {
	return b.hook(phase, name, fn, 0)
}

// Every binds a method to run periodically after POST_INIT until shutdown.
func (b *Builder[T]) Every(interval time.Duration, name string, fn any) *Builder[T] {
	if interval <= 0 {
		return b.fail("periodic method %s needs a positive interval", name)
	}
	return b.hook(component.PhasePostInit, name, fn, interval)
}

func (b *Builder[T]) hook(phase component.Phase, name string, fn any, interval time.Duration) *Builder[T] {
	fv, ft, ok := b.method(name, fn)
	if !ok {
		return b
	}
	withCtx := ft.NumIn() == 2 && ft.In(1) == contextType
	if ft.NumIn() > 2 || (ft.NumIn() == 2 && !withCtx) {
		return b.fail("lifecycle method %s may only take a context.Context", name)
	}
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && ft.Out(0) != errorType) {
		return b.fail("lifecycle method %s may only return an error", name)
	}
	b.desc.Hooks = append(b.desc.Hooks, Hook{
		Phase:    phase,
		Name:     name,
		Interval: interval,
		Invoke: func(ctx context.Context, instance any) error {
			in := []reflect.Value{reflect.ValueOf(instance)}
			if withCtx {
				in = append(in, reflect.ValueOf(ctx))
			}
			out := fv.Call(in)
			if len(out) == 1 && !out[0].IsNil() {
				return out[0].Interface().(error)
			}
			return nil
		},
	})
	return b
}

// As also registers the component under each of types, which T must be
// assignable to.
func (b *Builder[T]) As(types ...reflect.Type) *Builder[T] {
	for _, t := range types {
		if t == nil || !b.desc.Type.AssignableTo(t) {
			return b.fail("%s is not assignable to %s", typeName(b.desc.Type), typeName(t))
		}
		b.desc.As = append(b.desc.As, t)
	}
	return b
}

// Build returns the finished descriptor.
func (b *Builder[T]) Build() (Descriptor, error) {
	if b.err != nil {
		return Descriptor{}, b.err
	}
	if len(b.desc.Constructors) == 0 {
		return Descriptor{}, fmt.Errorf("di: %s: no constructor declared", b.desc.Name)
	}
	return b.desc, nil
}

// MustBuild is Build that panics on error, for package-level declarations.
func (b *Builder[T]) MustBuild() Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

func (b *Builder[T]) method(name string, fn any) (reflect.Value, reflect.Type, bool) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		b.fail("%s must be a function, got %T", name, fn)
		return fv, nil, false
	}
	ft := fv.Type()
	if ft.IsVariadic() || ft.NumIn() == 0 || !b.desc.Type.AssignableTo(ft.In(0)) {
		b.fail("%s must be a method expression on %s", name, typeName(b.desc.Type))
		return fv, nil, false
	}
	return fv, ft, true
}

func (b *Builder[T]) methodPoints(name string, ft reflect.Type, kind Kind, opts []PointOption) ([]Point, bool) {
	points := make([]Point, ft.NumIn()-1)
	for i := range points {
		points[i] = Point{
			Type:     ft.In(i + 1),
			Required: true,
			Kind:     kind,
			Name:     fmt.Sprintf("%s[%d]", name, i),
		}
	}
	for _, opt := range opts {
		if opt.index < 0 || opt.index >= len(points) {
			b.fail("%s has no parameter %d", name, opt.index)
			return nil, false
		}
		if opt.external {
			b.fail("%s: only constructor parameters can be external", name)
			return nil, false
		}
		opt.apply(&points[opt.index])
	}
	return points, true
}

func checkResults(ft reflect.Type, want reflect.Type) error {
	switch {
	case ft.NumOut() == 0 || ft.NumOut() > 2:
		return fmt.Errorf("must return %s or (%s, error)", typeName(want), typeName(want))
	case ft.NumOut() == 2 && ft.Out(1) != errorType:
		return fmt.Errorf("second result must be error")
	case !ft.Out(0).AssignableTo(want):
		return fmt.Errorf("returns %s, not assignable to %s", typeName(ft.Out(0)), typeName(want))
	}
	return nil
}

// callArgs converts resolved values to call arguments for ft, skipping the
// first offset parameters.
func callArgs(ft reflect.Type, offset int, args []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := argValue(ft.In(i+offset), a)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return in, nil
}

func argValue(t reflect.Type, a any) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Kind() == t.Kind() && v.Type().ConvertibleTo(t),
		isNumeric(v.Kind()) && isNumeric(t.Kind()):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %s cannot be used as %s", v.Type(), typeName(t))
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func results(out []reflect.Value) (any, error) {
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// funcName returns the short name of a function: NewService for
// example.com/app/service.NewService.
func funcName(fn any) string {
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	return full
}
