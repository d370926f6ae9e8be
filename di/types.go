package di

import (
	"context"
	"reflect"
	"time"

	"github.com/kbukum/wirekit/component"
)

// TypeOf returns the reflect.Type of T without needing a value. It works for
// interface types as well.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Kind is where an injection point sits on its component.
type Kind int

const (
	KindConstructor Kind = iota
	KindField
	KindSetter
	KindFactory
)

func (k Kind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindField:
		return "field"
	case KindSetter:
		return "setter"
	case KindFactory:
		return "factory"
	default:
		return "unknown"
	}
}

// Point is a single dependency a component needs.
type Point struct {
	Type     reflect.Type
	Required bool
	Kind     Kind
	// Name identifies the point in errors: a parameter index, field or method name.
	Name string
	// ConfigKey, when set, makes the point configuration-valued: it is looked
	// up in the ConfigSource and never waits for a provider.
	ConfigKey string
}

// Param is a constructor parameter. External parameters are supplied by the
// caller of Submit; all others are resolved by type.
type Param struct {
	Point
	External bool
}

// Constructor builds a component instance from its resolved arguments.
type Constructor struct {
	Name   string
	Params []Param
	Invoke func(args []any) (any, error)
}

func (c Constructor) magicCount() int {
	n := 0
	for _, p := range c.Params {
		if !p.External {
			n++
		}
	}
	return n
}

// Field is an injectable field, assigned after construction.
type Field struct {
	Point
	Assign func(instance, value any) error
}

// Setter is an injectable method, invoked after construction with all its
// arguments resolved.
type Setter struct {
	Name   string
	Params []Point
	Invoke func(instance any, args []any) error
}

// Factory is a method of a component that provides another type. Once its
// arguments are resolved it becomes the provider of Type.
type Factory struct {
	Type    reflect.Type
	Name    string
	Params  []Point
	Persist bool
	Invoke  func(instance any, args []any) (any, error)
}

// Hook is a lifecycle method of a component.
type Hook struct {
	Phase    component.Phase
	Name     string
	Invoke   func(ctx context.Context, instance any) error
	Interval time.Duration
}

// Descriptor is the complete, declarative description of one component type.
// It is produced once, usually with Describe, and consumed by Submit.
type Descriptor struct {
	Name         string
	Type         reflect.Type
	As           []reflect.Type
	Constructors []Constructor
	Fields       []Field
	Setters      []Setter
	Factories    []Factory
	Hooks        []Hook
}

// Points lists every type-resolved injection point of the descriptor across
// all its constructors and members.
func (d Descriptor) Points() []Point {
	var out []Point
	for _, c := range d.Constructors {
		for _, p := range c.Params {
			if !p.External {
				out = append(out, p.Point)
			}
		}
	}
	for _, f := range d.Fields {
		out = append(out, f.Point)
	}
	for _, s := range d.Setters {
		out = append(out, s.Params...)
	}
	for _, f := range d.Factories {
		out = append(out, f.Params...)
	}
	return out
}

func (d Descriptor) name() string {
	if d.Name != "" {
		return d.Name
	}
	return typeName(d.Type)
}

// provides lists every type the component registers a provider for.
func (d Descriptor) provides() []reflect.Type {
	out := make([]reflect.Type, 0, 1+len(d.As)+len(d.Factories))
	if d.Type != nil {
		out = append(out, d.Type)
	}
	out = append(out, d.As...)
	for _, f := range d.Factories {
		out = append(out, f.Type)
	}
	return out
}
