package intercept

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	apperrors "github.com/kbukum/wirekit/errors"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Builder assembles a Proxy from a method table and a list of interceptors.
type Builder struct {
	target       string
	methods      map[string]Handler
	interceptors []Interceptor
	err          error
}

// For starts a proxy for the component named target.
func For(target string) *Builder {
	return &Builder{target: target, methods: make(map[string]Handler)}
}

// Method adds or replaces one entry of the method table.
func (b *Builder) Method(name string, h Handler) *Builder {
	if h == nil {
		return b.fail("method %s: nil handler", name)
	}
	b.methods[name] = h
	return b
}

// Reflect adds every exported method of impl to the method table. A leading
// context.Context parameter is supplied from the call; the remaining
// parameters come from Invocation.Args. A trailing error result becomes the
// call's error; the other results become its value (nil, the single value,
// or a []any). The last argument of a variadic method is passed as a slice.
func (b *Builder) Reflect(impl any) *Builder {
	v := reflect.ValueOf(impl)
	if !v.IsValid() {
		return b.fail("reflect: nil implementation")
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		b.methods[m.Name] = reflectHandler(v.Method(i), m.Name)
	}
	return b
}

// Use appends interceptors. The first one added is outermost.
func (b *Builder) Use(interceptors ...Interceptor) *Builder {
	for _, ic := range interceptors {
		if ic == nil {
			return b.fail("nil interceptor")
		}
	}
	b.interceptors = append(b.interceptors, interceptors...)
	return b
}

// Build returns the proxy, with every method wrapped by the interceptors.
func (b *Builder) Build() (*Proxy, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.methods) == 0 {
		return nil, fmt.Errorf("intercept: %s: empty method table", b.target)
	}
	p := &Proxy{target: b.target, methods: make(map[string]Handler, len(b.methods))}
	for name, h := range b.methods {
		p.methods[name] = wrap(h, b.interceptors)
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)
	return p, nil
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf("intercept: %s: %s", b.target, fmt.Sprintf(format, args...))
	}
	return b
}

// Proxy routes named invocations through the interceptor chain to the
// underlying method table. It is an ordinary value: register it, or a typed
// facade around it, like any other instance.
type Proxy struct {
	target  string
	methods map[string]Handler
	names   []string
}

// Target returns the proxied component's name.
func (p *Proxy) Target() string { return p.target }

// Methods returns the method names in sorted order.
func (p *Proxy) Methods() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Invoke calls method with args through the interceptors.
func (p *Proxy) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	h, ok := p.methods[method]
	if !ok {
		return nil, apperrors.NotFound("method", p.target+"."+method)
	}
	return h(ctx, &Invocation{Target: p.target, Method: method, Args: args})
}

// Call is Invoke with the result asserted to T. A nil result yields T's zero
// value.
func Call[T any](ctx context.Context, p *Proxy, method string, args ...any) (T, error) {
	var zero T
	out, err := p.Invoke(ctx, method, args...)
	if err != nil || out == nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, apperrors.InvalidInput(method, fmt.Sprintf("result is %T, not %s", out, reflect.TypeOf((*T)(nil)).Elem()))
	}
	return v, nil
}

func reflectHandler(fn reflect.Value, name string) Handler {
	ft := fn.Type()
	withCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	first := 0
	if withCtx {
		first = 1
	}
	withErr := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType

	return func(ctx context.Context, inv *Invocation) (any, error) {
		if want := ft.NumIn() - first; len(inv.Args) != want {
			return nil, apperrors.InvalidInput(name, fmt.Sprintf("expected %d arguments, got %d", want, len(inv.Args)))
		}
		in := make([]reflect.Value, 0, ft.NumIn())
		if withCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, arg := range inv.Args {
			pt := ft.In(first + i)
			if arg == nil {
				in = append(in, reflect.Zero(pt))
				continue
			}
			av := reflect.ValueOf(arg)
			if !av.Type().AssignableTo(pt) {
				return nil, apperrors.InvalidInput(name, fmt.Sprintf("argument %d is %s, not %s", i, av.Type(), pt))
			}
			in = append(in, av)
		}

		var out []reflect.Value
		if ft.IsVariadic() {
			out = fn.CallSlice(in)
		} else {
			out = fn.Call(in)
		}
		var err error
		if withErr {
			if e := out[len(out)-1]; !e.IsNil() {
				err = e.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		switch len(out) {
		case 0:
			return nil, err
		case 1:
			return out[0].Interface(), err
		default:
			vals := make([]any, len(out))
			for i, o := range out {
				vals[i] = o.Interface()
			}
			return vals, err
		}
	}
}
