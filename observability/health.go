package observability

import (
	"context"

	"github.com/kbukum/wirekit/component"
)

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	Status     component.HealthStatus `json:"status"`
	Version    string                 `json:"version,omitempty"`
	RunID      string                 `json:"run_id,omitempty"`
	Components []component.Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status healthy.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  component.StatusHealthy,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch component.Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case component.StatusUnhealthy:
		sh.Status = component.StatusUnhealthy
	case component.StatusDegraded:
		if sh.Status != component.StatusUnhealthy {
			sh.Status = component.StatusDegraded
		}
	}
}

// Check polls every instance implementing component.HealthChecker. Instances
// without a name in their report are labelled with names[i].
func (sh *ServiceHealth) Check(ctx context.Context, names []string, instances []any) {
	for i, inst := range instances {
		checker, ok := inst.(component.HealthChecker)
		if !ok {
			continue
		}
		h := checker.Health(ctx)
		if h.Name == "" && i < len(names) {
			h.Name = names[i]
		}
		sh.AddComponent(h)
	}
}
