package bootstrap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/wirekit/component"
	"github.com/kbukum/wirekit/di"
	"github.com/kbukum/wirekit/observability"
)

// ComponentInfo is one wired component as shown in the summary.
type ComponentInfo struct {
	Name    string
	Type    string // from Describe, e.g. "repository", "service", "client"
	Details string
	Health  component.HealthStatus // empty when the component does not report health
	Message string
}

// PhaseInfo counts the lifecycle bindings of one phase.
type PhaseInfo struct {
	Phase  string
	Total  int
	Fired  int
	Failed int
}

// EndpointInfo is an address the application listens on.
type EndpointInfo struct {
	Name string
	URL  string
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	runID           string
	providers       int
	waiting         int
	periodic        int
	phases          []PhaseInfo
	components      []ComponentInfo
	endpoints       []EndpointInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		phases:      make([]PhaseInfo, 0),
		components:  make([]ComponentInfo, 0),
		endpoints:   make([]EndpointInfo, 0),
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackEndpoint records a listening address. Tracking a name twice replaces
// the earlier URL.
func (s *Summary) TrackEndpoint(name, url string) {
	for i := range s.endpoints {
		if s.endpoints[i].Name == name {
			s.endpoints[i].URL = url
			return
		}
	}
	s.endpoints = append(s.endpoints, EndpointInfo{Name: name, URL: url})
}

// Collect refreshes the wiring figures and component list from w. health may
// be nil.
func (s *Summary) Collect(w *di.WiringContext, health *observability.ServiceHealth) {
	snap := w.Snapshot()
	s.runID = snap.RunID
	s.providers = len(snap.Providers)
	s.waiting = len(snap.Waiting)
	s.phases = countPhases(snap.Lifecycle)

	s.periodic = 0
	for _, b := range snap.Lifecycle {
		if b.Interval > 0 {
			s.periodic++
		}
	}

	reported := make(map[string]component.Health)
	if health != nil {
		for _, h := range health.Components {
			reported[h.Name] = h
		}
	}

	s.components = s.components[:0]
	for _, c := range w.Components() {
		info := ComponentInfo{Name: c.Name}
		if d, ok := c.Instance.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				info.Name = desc.Name
			}
			info.Type = desc.Type
			info.Details = desc.Details
		}
		if h, ok := reported[c.Name]; ok {
			info.Health = h.Status
			info.Message = h.Message
		}
		s.components = append(s.components, info)
	}
}

// Components returns the collected component list.
func (s *Summary) Components() []ComponentInfo { return s.components }

// Phases returns the collected per-phase binding counts.
func (s *Summary) Phases() []PhaseInfo { return s.phases }

func countPhases(bindings []component.BindingState) []PhaseInfo {
	order := []component.Phase{component.PhasePreInit, component.PhasePostInit, component.PhasePreShutdown}
	out := make([]PhaseInfo, 0, len(order))
	for _, p := range order {
		info := PhaseInfo{Phase: p.String()}
		for _, b := range bindings {
			if b.Phase != info.Phase || b.Interval > 0 {
				continue
			}
			info.Total++
			if b.Fired {
				info.Fired++
			}
			if b.Error != "" {
				info.Failed++
			}
		}
		out = append(out, info)
	}
	return out
}

// Display writes the bootstrap summary to w.
func (s *Summary) Display(w io.Writer) {
	// Header
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	// Wiring
	fmt.Fprintf(w, "🔗 Wiring (run %s)\n", s.runID)
	fmt.Fprintf(w, "   ├── Providers: %d\n", s.providers)
	fmt.Fprintf(w, "   ├── Waiting: %d\n", s.waiting)
	fmt.Fprintf(w, "   └── Periodic methods: %d\n\n", s.periodic)

	// Lifecycle
	if len(s.phases) > 0 {
		fmt.Fprintf(w, "⏱️  Lifecycle\n")
		for i, p := range s.phases {
			fmt.Fprintf(w, "   %s %s %s: %d/%d fired\n", treePrefix(i, len(s.phases)), phaseIcon(p), p.Phase, p.Fired, p.Total)
		}
		fmt.Fprintf(w, "\n")
	}

	// Components
	if len(s.components) == 0 {
		fmt.Fprintf(w, "📦 Components\n   └── No components wired\n")
	} else {
		fmt.Fprintf(w, "📦 Components\n")
		checked, healthy := 0, 0
		for i, c := range s.components {
			line := fmt.Sprintf("   %s %s %s", treePrefix(i, len(s.components)), typeIcon(c.Type), c.Name)
			if c.Type != "" {
				line += fmt.Sprintf(" [%s]", c.Type)
			}
			if c.Details != "" {
				line += ": " + c.Details
			}
			if c.Health != "" {
				checked++
				if c.Health == component.StatusHealthy {
					healthy++
				}
				line += fmt.Sprintf(" %s %s", healthStatusIcon(c.Health), strings.ToLower(string(c.Health)))
				if c.Message != "" {
					line += fmt.Sprintf(" (%s)", c.Message)
				}
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "\n")

		if checked > 0 {
			if healthy == checked {
				fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n", healthy, checked)
			} else {
				fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n", healthy, checked)
			}
		}
	}

	// Endpoints
	if len(s.endpoints) > 0 {
		fmt.Fprintf(w, "\n🌐 Endpoints\n")
		for i, e := range s.endpoints {
			fmt.Fprintf(w, "   %s %s → %s\n", treePrefix(i, len(s.endpoints)), e.Name, e.URL)
		}
	}

	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func phaseIcon(p PhaseInfo) string {
	switch {
	case p.Failed > 0:
		return "❌"
	case p.Fired == p.Total:
		return "✅"
	default:
		return "⏸️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}

func typeIcon(compType string) string {
	switch compType {
	case "service":
		return "⚙️"
	case "repository":
		return "📁"
	case "handler":
		return "🎯"
	case "client":
		return "🔌"
	default:
		return "💼"
	}
}
