package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"stockcrew/internal/api/health"
	"stockcrew/internal/events"
	"stockcrew/internal/metrics"
	runsvc "stockcrew/internal/services/analysis"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
	// WorkDir holds report.md and the chart images.
	WorkDir string
}

// Deps are the services behind the routes.
type Deps struct {
	Pipeline Pipeline
	Gate     *runsvc.Gate
	Events   *events.Broadcaster
	Health   *health.Handler
}

// Server wraps the echo instance with lifecycle management
type Server struct {
	cfg      ServerConfig
	echo     *echo.Echo
	pipeline Pipeline
	gate     *runsvc.Gate
	events   *events.Broadcaster
	log      *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, deps Deps, log *logger.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8501"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if deps.Gate == nil {
		deps.Gate = runsvc.NewGate()
	}
	if deps.Events == nil {
		deps.Events = events.NewBroadcaster()
	}
	if deps.Health == nil {
		deps.Health = health.New(log, cfg.ServiceName, cfg.Version, nil)
	}

	s := &Server{
		cfg:      cfg,
		pipeline: deps.Pipeline,
		gate:     deps.Gate,
		events:   deps.Events,
		log:      log.With("component", "http"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError

	// Kubernetes probes
	e.GET("/health", echo.WrapHandler(http.HandlerFunc(deps.Health.HandleHealth)))
	e.GET("/ready", echo.WrapHandler(http.HandlerFunc(deps.Health.HandleReadiness)))
	e.GET("/live", echo.WrapHandler(http.HandlerFunc(deps.Health.HandleLiveness)))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.GET("/", s.index)
	e.GET("/charts/:file", s.chart)
	e.GET("/ws/runs/:id", s.stream)

	api := e.Group("/api")
	api.POST("/runs", s.createRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.POST("/runs/:id/confirm", s.confirmRun)
	api.GET("/report", s.report)
	api.GET("/charts", s.listCharts)

	s.echo = e
	s.log.Infow("HTTP server configured", "addr", cfg.Addr)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.cfg.Addr)

	srv := &http.Server{
		Addr:        s.cfg.Addr,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	if err := s.echo.StartServer(srv); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}

// handleError renders every failure as {"error": msg}.
func (s *Server) handleError(err error, c echo.Context) {
	code := statusFor(err)
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.log.Errorw("Request failed", "status", code, "method", req.Method, "path", req.URL.Path, "error", err)
	} else {
		s.log.Debugw("Request rejected", "status", code, "method", req.Method, "path", req.URL.Path, "error", err)
	}

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrEmptySubject), errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrPipelineBusy), errors.Is(err, errors.ErrNotAwaitingConfirmation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
