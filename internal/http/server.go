// Package http provides the HTTP API for cloneplan.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/export"
	"github.com/fyrsmithlabs/cloneplan/internal/metrics"
	"github.com/fyrsmithlabs/cloneplan/internal/pipeline"
	"github.com/fyrsmithlabs/cloneplan/internal/scheduler"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// Server provides HTTP endpoints for cloneplan.
type Server struct {
	echo      *echo.Echo
	runner    *pipeline.Runner
	store     *store.Store
	exports   *export.Manager
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// DefaultRetention applies to manual cleanup requests without a days
	// parameter.
	DefaultRetention time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(runner *pipeline.Runner, st *store.Store, exports *export.Manager, sched *scheduler.Scheduler, m *metrics.Metrics, logger *zap.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:             "localhost",
			Port:             8000,
			DefaultRetention: 2 * time.Hour,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		runner:    runner,
		store:     st,
		exports:   exports,
		scheduler: sched,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes(m)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(m *metrics.Metrics) {
	s.echo.GET("/health", s.handleHealth)
	if m != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	// Analysis flow
	s.echo.POST("/analyze", s.handleAnalyze)
	s.echo.GET("/analyze/status/:task_id", s.handleStatus)
	s.echo.GET("/results/:result_id", s.handleResult)

	api := s.echo.Group("/api")
	api.GET("/structure/:task_id", s.handleStructure)
	api.GET("/tasks", s.handleListTasks)
	api.GET("/tasks/status/summary", s.handleTaskSummary)
	api.GET("/tasks/:id", s.handleGetTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)
	api.POST("/tasks/clean", s.handleCleanTasks)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.POST("/export/:result_id", s.handleExport)
	api.GET("/export/:result_id", s.handleExportHistory)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
