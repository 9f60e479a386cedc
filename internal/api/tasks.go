package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/store"
)

// CreateTaskRequest is the request body for POST /tasks.
type CreateTaskRequest struct {
	Instruction   string `json:"instruction" validate:"required"`
	DodCommand    string `json:"dod_command" validate:"required"`
	WorkspacePath string `json:"workspace_path" validate:"required"`
	MaxIters      int    `json:"max_iters" validate:"gte=1"`
	TimeoutSec    int    `json:"timeout_sec" validate:"gte=1"`
}

// TaskResponse is the response body for POST /tasks.
type TaskResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TaskStatus is the response body for GET /tasks/:id.
type TaskStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Instruction string `json:"instruction"`
	DodCommand  string `json:"dod_command"`
}

// RunInfo is one iteration with its tool calls.
type RunInfo struct {
	*store.Run
	ToolCalls []*store.ToolCall `json:"tool_calls"`
}

// ArtifactInfo describes a generated file.
type ArtifactInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleCreateTask(c echo.Context) error {
	req := CreateTaskRequest{
		WorkspacePath: s.config.WorkspaceRoot,
		MaxIters:      s.config.DefaultMaxIters,
		TimeoutSec:    s.config.DefaultTimeoutSec,
	}
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid task request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := s.deps.Tasks.Submit(c.Request().Context(), store.NewTask{
		Instruction:   req.Instruction,
		DodCommand:    req.DodCommand,
		WorkspacePath: req.WorkspacePath,
		MaxIters:      req.MaxIters,
		TimeoutSec:    req.TimeoutSec,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, TaskResponse{ID: task.ID, Status: string(store.StatusQueued)})
}

func (s *Server) handleListTasks(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	tasks, err := s.deps.Store.ListTasks(c.Request().Context(), limit)
	if err != nil {
		return storeError(err, "tasks")
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.deps.Store.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "task")
	}
	return c.JSON(http.StatusOK, TaskStatus{
		ID:          task.ID,
		Status:      string(task.Status),
		Instruction: task.Instruction,
		DodCommand:  task.DodCommand,
	})
}

func (s *Server) handleListRuns(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := s.deps.Store.GetTask(ctx, id); err != nil {
		return storeError(err, "task")
	}
	runs, err := s.deps.Store.ListRuns(ctx, id)
	if err != nil {
		return storeError(err, "runs")
	}
	out := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		calls, err := s.deps.Store.ListToolCalls(ctx, r.ID)
		if err != nil {
			return storeError(err, "tool calls")
		}
		out = append(out, RunInfo{Run: r, ToolCalls: calls})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListArtifacts(c echo.Context) error {
	arts, err := s.deps.Store.ListArtifacts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "artifacts")
	}
	out := make([]ArtifactInfo, 0, len(arts))
	for _, a := range arts {
		out = append(out, ArtifactInfo{
			ID:        a.ID,
			Type:      string(a.Type),
			Path:      a.Path,
			CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// handleArtifactContent serves the newest artifact of the requested type.
func (s *Server) handleArtifactContent(c echo.Context) error {
	typ := store.ArtifactType(c.Param("type"))
	arts, err := s.deps.Store.ListArtifacts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "artifacts")
	}
	for i := len(arts) - 1; i >= 0; i-- {
		if arts[i].Type != typ {
			continue
		}
		data, err := os.ReadFile(arts[i].Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return echo.NewHTTPError(http.StatusNotFound, "artifact file missing")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename="+strconv.Quote(filepath.Base(arts[i].Path)))
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data)
	}
	return echo.NewHTTPError(http.StatusNotFound, "artifact not found")
}
