package di

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	apperrors "github.com/kbukum/wirekit/errors"
)

var (
	// ErrUnresolvedDependency is matched by every error reporting a required
	// dependency that has no provider.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrConfigKeyNotFound is the cause of a configuration failure for a
	// required key that the source does not hold.
	ErrConfigKeyNotFound = errors.New("configuration key not found")
	// ErrNoConfigSource is the cause of a configuration failure when the
	// context was created without a ConfigSource.
	ErrNoConfigSource = errors.New("no configuration source")
)

// Consumer identifies one member of one component.
type Consumer struct {
	Component string `json:"component"`
	Member    string `json:"member"`
}

func (c Consumer) String() string { return c.Component + "." + c.Member }

// MissingDependency lists, for one type, every consumer still waiting for it.
type MissingDependency struct {
	Type      reflect.Type
	Consumers []Consumer
}

// WaitError is returned by FinalizeWiring when required dependencies were
// never provided. Missing is in ledger order: types by their first waiting
// consumer and consumers in the order they started waiting.
type WaitError struct {
	Missing []MissingDependency
	// Cycles lists groups of components that wait on each other, each as a
	// path that starts and ends with the same component.
	Cycles [][]string
}

func (e *WaitError) Error() string {
	var b strings.Builder
	b.WriteString("unresolved required dependencies: ")
	for i, m := range e.Missing {
		if i > 0 {
			b.WriteString("; ")
		}
		names := make([]string, len(m.Consumers))
		for j, c := range m.Consumers {
			names[j] = c.String()
		}
		fmt.Fprintf(&b, "%s (wanted by %s)", typeName(m.Type), strings.Join(names, ", "))
	}
	for _, c := range e.Cycles {
		fmt.Fprintf(&b, "; cycle: %s", strings.Join(c, " -> "))
	}
	return b.String()
}

// AppError renders the failure as an UNRESOLVED_DEPENDENCY application error.
func (e *WaitError) AppError() *apperrors.AppError {
	missing := make(map[string][]string, len(e.Missing))
	for _, m := range e.Missing {
		for _, c := range m.Consumers {
			missing[typeName(m.Type)] = append(missing[typeName(m.Type)], c.String())
		}
	}
	appErr := apperrors.New(apperrors.ErrCodeUnresolvedDependency, e.Error(), http.StatusInternalServerError).
		WithDetail("missing", missing)
	if len(e.Cycles) > 0 {
		appErr.WithDetail("cycles", e.Cycles)
	}
	return appErr.WithCause(ErrUnresolvedDependency)
}

// Unwrap lets errors.Is match ErrUnresolvedDependency and errors.As find the
// *apperrors.AppError form.
func (e *WaitError) Unwrap() []error {
	return []error{ErrUnresolvedDependency, e.AppError()}
}

func unresolved(consumer string, pt Point) error {
	return apperrors.UnresolvedDependency(consumer, typeName(pt.Type)).
		WithDetail("member", pt.Name).
		WithCause(ErrUnresolvedDependency)
}

func invocationFailure(component, member string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeInvocationFailure {
		return err
	}
	return apperrors.InvocationFailure(component, member, err)
}

// invokeSafe calls fn and turns a panic into an error.
func invokeSafe(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// joinErrors is errors.Join that returns a lone error unchanged.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
