package di

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// The graph used across the wiring tests: Service needs Repo and an optional
// Cache, Repo needs Logger, and nothing ever provides Cache.

type Logger struct {
	prefix string
}

func NewLogger() *Logger { return &Logger{prefix: "app"} }

type Repo struct {
	log *Logger
}

func NewRepo(l *Logger) *Repo { return &Repo{log: l} }

type Cache interface {
	Get(key string) (string, bool)
}

type Service struct {
	repo  *Repo
	cache Cache
	calls *[]string
}

func NewService(r *Repo, c Cache) *Service { return &Service{repo: r, cache: c} }

func (s *Service) Start(ctx context.Context) error {
	*s.calls = append(*s.calls, "m1@POST_INIT")
	return nil
}

func (s *Service) Warm() {
	*s.calls = append(*s.calls, "m2@POST_INIT")
}

func (s *Service) Stop(ctx context.Context) error {
	*s.calls = append(*s.calls, "m3@PRE_SHUTDOWN")
	return nil
}

type memoryCache map[string]string

func (m memoryCache) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func loggerDesc() Descriptor {
	return Describe[*Logger]("logger").Constructor(NewLogger).MustBuild()
}

func repoDesc() Descriptor {
	return Describe[*Repo]("repo").Constructor(NewRepo).MustBuild()
}

func serviceDesc() Descriptor {
	return Describe[*Service]("service").Constructor(NewService, Optional(1)).MustBuild()
}

// mapSource is a ConfigSource over a plain map.
type mapSource map[string]any

func (m mapSource) Lookup(key string, t reflect.Type) (any, bool, error) {
	v, ok := m[key]
	if !ok {
		return nil, false, nil
	}
	if err, isErr := v.(error); isErr {
		return nil, false, err
	}
	if !reflect.TypeOf(v).AssignableTo(t) {
		return nil, false, fmt.Errorf("%s is %T, want %s", key, v, t)
	}
	return v, true, nil
}

// recordingObserver counts wiring events.
type recordingObserver struct {
	registered, deferred, delivered, defaulted, completed, finalized int
}

func (o *recordingObserver) Registered(string, bool)  { o.registered++ }
func (o *recordingObserver) Deferred(string, string)  { o.deferred++ }
func (o *recordingObserver) Delivered(string, string) { o.delivered++ }
func (o *recordingObserver) Defaulted(string, string) { o.defaulted++ }
func (o *recordingObserver) Completed(string)         { o.completed++ }
func (o *recordingObserver) Finalized(_ time.Duration, _ int, _ error) {
	o.finalized++
}

func permutations(items []Descriptor) [][]Descriptor {
	if len(items) <= 1 {
		return [][]Descriptor{append([]Descriptor{}, items...)}
	}
	var out [][]Descriptor
	for i := range items {
		rest := make([]Descriptor, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Descriptor{items[i]}, p...))
		}
	}
	return out
}
