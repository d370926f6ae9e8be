package bootstrap

import (
	"context"

	"github.com/kbukum/wirekit/di"
)

// Declaration is one component to submit, with the external constructor
// arguments it needs.
type Declaration struct {
	Descriptor di.Descriptor
	Args       []any
}

// Declare pairs a descriptor with its external arguments.
func Declare(d di.Descriptor, args ...any) Declaration {
	return Declaration{Descriptor: d, Args: args}
}

// Discoverer supplies the component declarations of an application. It is
// asked once per run; the order it returns is the submission order.
type Discoverer interface {
	Discover(ctx context.Context) ([]Declaration, error)
}

// DiscoverFunc adapts a function to Discoverer.
type DiscoverFunc func(ctx context.Context) ([]Declaration, error)

// Discover calls f.
func (f DiscoverFunc) Discover(ctx context.Context) ([]Declaration, error) { return f(ctx) }

// StaticDiscovery is a fixed, in-process list of declarations.
type StaticDiscovery []Declaration

// Discover returns the list unchanged.
func (s StaticDiscovery) Discover(context.Context) ([]Declaration, error) { return s, nil }

// Components builds a StaticDiscovery from descriptors without external
// arguments.
func Components(descs ...di.Descriptor) StaticDiscovery {
	out := make(StaticDiscovery, len(descs))
	for i, d := range descs {
		out[i] = Declaration{Descriptor: d}
	}
	return out
}
