package diagnostics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbukum/wirekit/config"
	"github.com/kbukum/wirekit/logger"
)

const requestIDHeader = "X-Request-Id"

// Server serves the diagnostics endpoints on their own listener.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     config.DiagnosticsConfig
	log        *logger.Logger
	addr       string
}

// NewEngine builds a gin engine with the diagnostics routes mounted:
//
//	GET {base}/wiring      wiring snapshot (?section=providers|waiting|components)
//	GET {base}/lifecycle   lifecycle bindings and periodic runs (?phase=POST_INIT)
//	GET {base}/version     build information
//	GET /health            component health
//	GET /alive             liveness
func NewEngine(basePath string, src Sources, log *logger.Logger) *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if basePath == "" {
		basePath = config.DefaultDiagnosticsPath
	}

	engine := gin.New()
	engine.Use(recovery(log), requestID(), requestLogger(log))

	debugGroup := engine.Group(basePath)
	debugGroup.GET("/wiring", Wiring(src))
	debugGroup.GET("/lifecycle", Lifecycle(src))
	debugGroup.GET("/version", Version())

	engine.GET("/health", Health(src))
	engine.GET("/alive", Liveness(src.Service))
	return engine
}

// New creates a diagnostics server from cfg. Call Start to bind it.
func New(cfg config.DiagnosticsConfig, src Sources, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get("diagnostics")
	}
	engine := NewEngine(cfg.BasePath, src, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log,
		addr:       cfg.Addr,
	}
}

// Handler returns the HTTP handler, for tests or mounting elsewhere.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string { return s.addr }

// Start binds the listener and serves in a goroutine. It returns once the
// port is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("diagnostics failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.addr = listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Diagnostics server error", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	s.log.Info("Diagnostics server started", map[string]interface{}{
		"addr":      s.addr,
		"base_path": path.Clean("/" + s.config.BasePath),
	})
	return nil
}

// Stop shuts the server down, waiting at most 5 seconds for open requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diagnostics shutdown error: %w", err)
	}
	s.log.Info("Diagnostics server stopped")
	return nil
}

func recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("Panic recovered", map[string]interface{}{
					logger.FieldError: fmt.Sprintf("%v", err),
					"stack":           string(debug.Stack()),
					"path":            c.Request.URL.Path,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Diagnostics request", map[string]interface{}{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			logger.FieldDuration: time.Since(start).Milliseconds(),
			"request_id":         c.GetString("request_id"),
		})
	}
}
