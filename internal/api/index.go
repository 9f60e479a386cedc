package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/tools"
)

// Defaults for POST /index/rebuild when the request names no globs.
var (
	DefaultIndexInclude = []string{"**/*.py", "**/*.md", "**/*.txt"}
	DefaultIndexExclude = []string{"**/.git/**", "**/dist/**"}
)

// IndexRebuildRequest is the request body for POST /index/rebuild.
type IndexRebuildRequest struct {
	Path        string   `json:"path"`
	IncludeGlob []string `json:"include_glob"`
	ExcludeGlob []string `json:"exclude_glob"`
}

// IndexQueryRequest is the request body for POST /index/query.
type IndexQueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k" validate:"gte=1,lte=100"`
}

func (s *Server) handleIndexRebuild(c echo.Context) error {
	if s.deps.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "retrieval index is not configured")
	}
	var req IndexRebuildRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		req.Path = s.config.WorkspaceRoot
	}
	if req.IncludeGlob == nil {
		req.IncludeGlob = DefaultIndexInclude
	}
	if req.ExcludeGlob == nil {
		req.ExcludeGlob = DefaultIndexExclude
	}
	if s.deps.Guard != nil {
		if err := s.deps.Guard.CheckPath(req.Path); err != nil {
			return policyError(err)
		}
	}

	stats, err := s.deps.Index.Rebuild(c.Request().Context(), req.Path, req.IncludeGlob, req.ExcludeGlob)
	if err != nil {
		s.logger.Error("index rebuild failed", zap.String("path", req.Path), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleIndexQuery(c echo.Context) error {
	if s.deps.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "retrieval index is not configured")
	}
	req := IndexQueryRequest{TopK: tools.DefaultTopK}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hits, err := s.deps.Index.Query(c.Request().Context(), req.Query, req.TopK)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"hits": hits})
}
