package di

import "fmt"

// MustResolve resolves a component with type safety, panics on error.
//
// Example:
//
//	repo := di.MustResolve[*Repository](wctx)
func MustResolve[T any](w *WiringContext) T {
	v, err := Resolve[T](w)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// Resolve resolves a component with type safety, returns error on failure
// or when nothing provides T.
func Resolve[T any](w *WiringContext) (T, error) {
	var zero T
	t := TypeOf[T]()
	instance, found, err := w.Resolve(t)
	if err != nil {
		return zero, fmt.Errorf("di: failed to resolve %s: %w", typeName(t), err)
	}
	if !found {
		return zero, fmt.Errorf("di: nothing provides %s: %w", typeName(t), ErrUnresolvedDependency)
	}
	if instance == nil {
		return zero, nil
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: provider of %s returned %T", typeName(t), instance)
	}
	return result, nil
}

// TryResolve resolves a component, returns zero value and false if not found.
// Use this when a dependency is optional.
//
// Example:
//
//	if cache, ok := di.TryResolve[Cache](wctx); ok {
//	    cache.Warm()
//	}
func TryResolve[T any](w *WiringContext) (T, bool) {
	v, err := Resolve[T](w)
	if err != nil {
		return v, false
	}
	return v, true
}

// Provide registers v as the instance of T.
func Provide[T any](w *WiringContext, v T) error {
	return w.RegisterInstance(TypeOf[T](), v)
}
