package di

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/wirekit/logger"
	"github.com/kbukum/wirekit/observability"
)

// FinalizeWiring closes the submission pass. Every optional request still
// waiting receives its type's default value, in ledger order; deliveries may
// cascade. If required requests remain, a *WaitError describing them is
// returned. Otherwise the dispatcher is sealed so POST_INIT may run, and with
// disableWaiting set the context stops deferring for good: later unresolved
// required points fail at once and optional ones get their default.
func (w *WiringContext) FinalizeWiring(disableWaiting bool) error {
	start := time.Now()
	ctx, span := observability.StartSpan(w.ctx, observability.SpanWiringFinalize)
	defer span.End()

	var errs []error
	for {
		optional := w.optionalPending()
		if len(optional) == 0 {
			break
		}
		for _, r := range optional {
			if r.done {
				continue
			}
			w.ledger.remove(r)
			r.done = true
			w.substituteDefault(r.Consumer, r.Member, r.Type)
			if err := r.deliver(w.defaultFor(r.Type)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if remaining := w.ledger.pending(); len(remaining) > 0 {
		waitErr := w.waitError(remaining)
		errs = append(errs, waitErr)
		w.log.Error("Wiring incomplete", map[string]interface{}{
			logger.FieldPending: len(remaining),
			logger.FieldError:   waitErr.Error(),
		})
	}

	err := joinErrors(errs)
	w.observer.Finalized(time.Since(start), w.ledger.len(), err)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}

	if disableWaiting {
		w.canWait = false
	}
	w.finalized = true
	w.dispatcher.Seal()

	w.log.Info("Wiring finalized", map[string]interface{}{
		logger.FieldCount:    len(w.components),
		"providers":          w.providers.len(),
		"waiting_disabled":   !w.canWait,
		logger.FieldDuration: time.Since(start).Milliseconds(),
	})
	return nil
}

func (w *WiringContext) optionalPending() []*WireRequest {
	var out []*WireRequest
	for _, r := range w.ledger.pending() {
		if !r.Required {
			out = append(out, r)
		}
	}
	return out
}

func (w *WiringContext) waitError(remaining []*WireRequest) *WaitError {
	e := &WaitError{}
	index := make(map[reflect.Type]int)
	for _, r := range remaining {
		i, ok := index[r.Type]
		if !ok {
			i = len(e.Missing)
			index[r.Type] = i
			e.Missing = append(e.Missing, MissingDependency{Type: r.Type})
		}
		e.Missing[i].Consumers = append(e.Missing[i].Consumers, Consumer{Component: r.Consumer, Member: r.Member})
	}
	e.Cycles = w.findCycles(remaining)
	return e
}

// findCycles walks the graph of blocked components, where an edge goes from a
// waiting consumer to the submitted component that would provide the type it
// waits for, and returns every cycle once.
func (w *WiringContext) findCycles(remaining []*WireRequest) [][]string {
	edges := make(map[string][]string)
	var nodes []string
	for _, r := range remaining {
		owner, ok := w.inflight[r.Type]
		if !ok {
			continue
		}
		if _, seen := edges[r.Consumer]; !seen {
			nodes = append(nodes, r.Consumer)
		}
		edges[r.Consumer] = append(edges[r.Consumer], owner)
	}

	var (
		cycles  [][]string
		seen    = make(map[string]bool)
		visited = make(map[string]bool)
		onPath  = make(map[string]bool)
		path    []string
	)

	var visit func(id string)
	visit = func(id string) {
		if onPath[id] {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), id)
			if key := cycleKey(cycle); !seen[key] {
				seen[key] = true
				cycles = append(cycles, cycle)
			}
			return
		}
		if visited[id] {
			return
		}

		onPath[id] = true
		path = append(path, id)
		for _, next := range edges[id] {
			visit(next)
		}
		onPath[id] = false
		path = path[:len(path)-1]
		visited[id] = true
	}

	for _, n := range nodes {
		visit(n)
	}
	return cycles
}

// cycleKey identifies a cycle regardless of the member it was entered from.
func cycleKey(cycle []string) string {
	members := append([]string{}, cycle[:len(cycle)-1]...)
	sort.Strings(members)
	return strings.Join(members, "|")
}
