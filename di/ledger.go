package di

import (
	"reflect"
	"sort"
)

// WireRequest is one consumer waiting for a type that has no provider yet.
type WireRequest struct {
	// Consumer is the name of the waiting component.
	Consumer string
	// Member is the constructor parameter, field or method that needs the value.
	Member   string
	Type     reflect.Type
	Required bool

	deliver func(any) error
	done    bool
	seq     int
}

// waitLedger holds wire requests bucketed by requested type. A type has a
// bucket only while no provider exists for it, or while its provider failed
// to serve the requests left in the bucket.
type waitLedger struct {
	buckets map[reflect.Type][]*WireRequest
	seq     int
}

func newWaitLedger() *waitLedger {
	return &waitLedger{buckets: make(map[reflect.Type][]*WireRequest)}
}

func (l *waitLedger) enqueue(r *WireRequest) {
	l.seq++
	r.seq = l.seq
	l.buckets[r.Type] = append(l.buckets[r.Type], r)
}

// requeue puts back a request that take returned but that was never
// delivered. It keeps its original ledger position.
func (l *waitLedger) requeue(r *WireRequest) {
	l.buckets[r.Type] = append(l.buckets[r.Type], r)
}

// take removes and returns the bucket for t.
func (l *waitLedger) take(t reflect.Type) []*WireRequest {
	reqs := l.buckets[t]
	delete(l.buckets, t)
	return reqs
}

func (l *waitLedger) waiting(t reflect.Type) bool {
	return len(l.buckets[t]) > 0
}

// pending returns every outstanding request in the order it was enqueued.
func (l *waitLedger) pending() []*WireRequest {
	var out []*WireRequest
	for _, reqs := range l.buckets {
		for _, r := range reqs {
			if !r.done {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (l *waitLedger) len() int {
	n := 0
	for _, reqs := range l.buckets {
		n += len(reqs)
	}
	return n
}

// remove deletes r from its bucket.
func (l *waitLedger) remove(r *WireRequest) {
	reqs := l.buckets[r.Type]
	for i, other := range reqs {
		if other == r {
			reqs = append(reqs[:i], reqs[i+1:]...)
			break
		}
	}
	if len(reqs) == 0 {
		delete(l.buckets, r.Type)
		return
	}
	l.buckets[r.Type] = reqs
}
