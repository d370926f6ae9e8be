package di

import (
	"reflect"
	"sync"
)

// Provider yields the instance registered for a type.
type Provider interface {
	Get() (any, error)
	// Persistent reports whether every Get returns the same instance.
	Persistent() bool
}

type constantProvider struct {
	value any
}

// Constant returns a provider for an already built instance.
func Constant(v any) Provider { return constantProvider{value: v} }

func (p constantProvider) Get() (any, error) { return p.value, nil }
func (p constantProvider) Persistent() bool  { return true }

type factoryProvider struct {
	fn      func() (any, error)
	persist bool

	mu    sync.Mutex
	built bool
	value any
}

// NewFactory returns a provider that calls fn. With persist set the first
// successful result is kept and returned by every later Get; otherwise each
// Get may produce a distinct instance.
func NewFactory(fn func() (any, error), persist bool) Provider {
	return &factoryProvider{fn: fn, persist: persist}
}

func (p *factoryProvider) Get() (any, error) {
	if !p.persist {
		return p.fn()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built {
		return p.value, nil
	}
	v, err := p.fn()
	if err != nil {
		return nil, err
	}
	p.value, p.built = v, true
	return v, nil
}

func (p *factoryProvider) Persistent() bool { return p.persist }

// providerTable maps each type to its single current provider. Order keeps
// first-registration order for snapshots.
type providerTable struct {
	entries map[reflect.Type]Provider
	order   []reflect.Type
}

func newProviderTable() *providerTable {
	return &providerTable{entries: make(map[reflect.Type]Provider)}
}

// put stores p for t, replacing any previous provider.
func (pt *providerTable) put(t reflect.Type, p Provider) (replaced bool) {
	if _, replaced = pt.entries[t]; !replaced {
		pt.order = append(pt.order, t)
	}
	pt.entries[t] = p
	return replaced
}

func (pt *providerTable) get(t reflect.Type) (Provider, bool) {
	p, ok := pt.entries[t]
	return p, ok
}

func (pt *providerTable) len() int { return len(pt.entries) }
