// Package api exposes tasks, their event streams and the retrieval index over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/observability"
	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

// TaskSubmitter creates a task and starts working on it.
type TaskSubmitter interface {
	Submit(ctx context.Context, in store.NewTask) (*store.Task, error)
}

// TaskReader is the read side of persistence used by the API.
type TaskReader interface {
	Ping(ctx context.Context) error
	GetTask(ctx context.Context, id string) (*store.Task, error)
	ListTasks(ctx context.Context, limit int) ([]*store.Task, error)
	ListRuns(ctx context.Context, taskID string) ([]*store.Run, error)
	ListToolCalls(ctx context.Context, runID string) ([]*store.ToolCall, error)
	ListArtifacts(ctx context.Context, taskID string) ([]*store.Artifact, error)
}

// PathChecker guards index rebuild roots.
type PathChecker interface {
	CheckPath(path string) error
}

// Deps are the server's collaborators. Index and Status may be nil.
type Deps struct {
	Tasks  TaskSubmitter
	Store  TaskReader
	Bus    *events.Bus
	Index  tools.Index
	Guard  PathChecker
	Status *observability.Status
}

// Config holds HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	WorkspaceRoot     string
	DefaultMaxIters   int
	DefaultTimeoutSec int
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *zap.Logger
	config *Config
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Tasks == nil || deps.Store == nil {
		return nil, fmt.Errorf("task submitter and store are required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("event bus cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8080}
	}
	if cfg.DefaultMaxIters <= 0 {
		cfg.DefaultMaxIters = 8
	}
	if cfg.DefaultTimeoutSec <= 0 {
		cfg.DefaultTimeoutSec = 1800
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, deps: deps, logger: logger.Named("api"), config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/tasks", s.handleCreateTask)
	s.echo.GET("/tasks", s.handleListTasks)
	s.echo.GET("/tasks/:id", s.handleGetTask)
	s.echo.GET("/tasks/:id/runs", s.handleListRuns)
	s.echo.GET("/tasks/:id/artifacts", s.handleListArtifacts)
	s.echo.GET("/tasks/:id/artifacts/:type", s.handleArtifactContent)
	s.echo.GET("/tasks/:id/events", s.handleEvents)

	s.echo.POST("/index/rebuild", s.handleIndexRebuild)
	s.echo.POST("/index/query", s.handleIndexQuery)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Database string                  `json:"database"`
	Workers  *observability.Snapshot `json:"workers,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	code := http.StatusOK
	if err := s.deps.Store.Ping(c.Request().Context()); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "error"
		code = http.StatusServiceUnavailable
	}
	if s.deps.Status != nil {
		snap := s.deps.Status.Snapshot()
		resp.Workers = &snap
	}
	return c.JSON(code, resp)
}

// storeError maps persistence errors to HTTP errors.
func storeError(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// policyError maps sandbox violations to 403.
func policyError(err error) error {
	if errors.Is(err, governance.ErrPolicyViolation) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
