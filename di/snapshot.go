package di

import "github.com/kbukum/wirekit/component"

// ProviderInfo describes one provider table entry.
type ProviderInfo struct {
	Type       string `json:"type"`
	Persistent bool   `json:"persistent"`
}

// WaitInfo describes one outstanding wire request.
type WaitInfo struct {
	Type     string `json:"type"`
	Consumer string `json:"consumer"`
	Member   string `json:"member"`
	Required bool   `json:"required"`
}

// Snapshot is a read-only view of a wiring context.
type Snapshot struct {
	RunID      string                   `json:"run_id"`
	CanWait    bool                     `json:"can_wait"`
	Finalized  bool                     `json:"finalized"`
	Components []string                 `json:"components"`
	Providers  []ProviderInfo           `json:"providers"`
	Waiting    []WaitInfo               `json:"waiting"`
	Lifecycle  []component.BindingState `json:"lifecycle"`
}

// Snapshot captures the current providers, waits and lifecycle bindings.
// Providers are listed in first-registration order, waits in ledger order.
func (w *WiringContext) Snapshot() Snapshot {
	s := Snapshot{
		RunID:      w.id,
		CanWait:    w.canWait,
		Finalized:  w.finalized,
		Components: make([]string, 0, len(w.components)),
		Providers:  make([]ProviderInfo, 0, w.providers.len()),
		Waiting:    []WaitInfo{},
		Lifecycle:  w.dispatcher.Bindings(),
	}
	for _, c := range w.components {
		s.Components = append(s.Components, c.Name)
	}
	for _, t := range w.providers.order {
		p := w.providers.entries[t]
		s.Providers = append(s.Providers, ProviderInfo{Type: typeName(t), Persistent: p.Persistent()})
	}
	for _, r := range w.ledger.pending() {
		s.Waiting = append(s.Waiting, WaitInfo{
			Type:     typeName(r.Type),
			Consumer: r.Consumer,
			Member:   r.Member,
			Required: r.Required,
		})
	}
	return s
}
