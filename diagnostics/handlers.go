package diagnostics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/wirekit/component"
	"github.com/kbukum/wirekit/di"
	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/observability"
	"github.com/kbukum/wirekit/schedule"
	"github.com/kbukum/wirekit/version"
)

// Sources supplies the data the endpoints report. Nil functions make their
// endpoint answer 404.
type Sources struct {
	Service string
	Version string
	// Wiring returns the current wiring snapshot.
	Wiring func() di.Snapshot
	// Health polls component health.
	Health func(ctx context.Context) *observability.ServiceHealth
	// Schedule returns the run history of periodic methods.
	Schedule func() []schedule.Stat
}

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// LifecycleReport is the body of the lifecycle endpoint.
type LifecycleReport struct {
	Bindings []component.BindingState `json:"bindings"`
	Periodic []schedule.Stat          `json:"periodic"`
}

// Wiring returns a handler reporting providers, waiting requests and
// completed components.
func Wiring(src Sources) gin.HandlerFunc {
	return func(c *gin.Context) {
		if src.Wiring == nil {
			respondWithError(c, apperrors.NotFound("wiring snapshot", ""))
			return
		}
		snap := src.Wiring()
		if section := c.Query("section"); section != "" {
			switch section {
			case "providers":
				respondOK(c, snap.Providers)
			case "waiting":
				respondOK(c, snap.Waiting)
			case "components":
				respondOK(c, snap.Components)
			default:
				respondWithError(c, apperrors.InvalidInput("section", "must be one of providers, waiting, components"))
			}
			return
		}
		respondOK(c, snap)
	}
}

// Lifecycle returns a handler reporting every lifecycle binding and, when a
// scheduler is attached, the periodic run history.
func Lifecycle(src Sources) gin.HandlerFunc {
	return func(c *gin.Context) {
		if src.Wiring == nil {
			respondWithError(c, apperrors.NotFound("lifecycle bindings", ""))
			return
		}
		report := LifecycleReport{
			Bindings: src.Wiring().Lifecycle,
			Periodic: []schedule.Stat{},
		}
		if phase := c.Query("phase"); phase != "" {
			p, ok := component.ParsePhase(phase)
			if !ok {
				respondWithError(c, apperrors.InvalidInput("phase", "unknown lifecycle phase "+phase))
				return
			}
			report.Bindings = filterPhase(report.Bindings, p)
		}
		if src.Schedule != nil {
			report.Periodic = src.Schedule()
		}
		respondOK(c, report)
	}
}

// Health returns a handler reporting aggregated component health. An
// unhealthy service answers 503.
func Health(src Sources) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sh *observability.ServiceHealth
		if src.Health != nil {
			sh = src.Health(c.Request.Context())
		}
		if sh == nil {
			sh = observability.NewServiceHealth(src.Service, src.Version)
		}

		status := http.StatusOK
		if sh.Status == component.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"run_id":     sh.RunID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}

// Version returns a handler reporting the binary's build information.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		respondOK(c, version.Read())
	}
}

// Liveness returns a handler confirming the process serves HTTP.
func Liveness(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"service":   service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func filterPhase(in []component.BindingState, p component.Phase) []component.BindingState {
	out := make([]component.BindingState, 0, len(in))
	for _, b := range in {
		if b.Phase == p.String() {
			out = append(out, b)
		}
	}
	return out
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// respondWithError derives status and body from an *AppError in err's chain,
// otherwise sends a generic 500.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
}
