package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/ai"
	"github.com/fyrsmithlabs/cloneplan/internal/export"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// TaskSummary is one task in the admin list view.
type TaskSummary struct {
	TaskID    string    `json:"task_id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	ResultID  string    `json:"result_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleListTasks returns all tasks, newest first.
func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.store.ListTasks(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to list tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tasks")
	}

	out := make([]TaskSummary, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, TaskSummary{
			TaskID:    task.ID,
			URL:       task.URL,
			Status:    string(task.Status),
			Progress:  task.Progress,
			Message:   task.Message,
			ResultID:  task.ResultID,
			CreatedAt: task.CreatedAt,
			UpdatedAt: task.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// handleGetTask returns one task with step detail, reusing the status shape.
func (s *Server) handleGetTask(c echo.Context) error {
	return s.taskStatus(c, c.Param("id"))
}

// handleDeleteTask removes a task and its steps.
func (s *Server) handleDeleteTask(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.DeleteTask(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("failed to delete task", zap.String("task_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete task")
	}
	return c.NoContent(http.StatusNoContent)
}

// handleTaskSummary returns task counts by status.
func (s *Server) handleTaskSummary(c echo.Context) error {
	summary, err := s.store.Summary(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to summarize tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to summarize tasks")
	}
	return c.JSON(http.StatusOK, summary)
}

// CleanResponse is the response body for POST /api/tasks/clean.
type CleanResponse struct {
	Deleted int64 `json:"deleted"`
}

// handleCleanTasks triggers cleanup manually. An optional days parameter
// overrides the configured retention.
func (s *Server) handleCleanTasks(c echo.Context) error {
	if s.scheduler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cleanup is not configured")
	}

	retention := s.config.DefaultRetention
	if days := c.QueryParam("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive integer")
		}
		retention = time.Duration(n) * 24 * time.Hour
	}

	deleted, err := s.scheduler.Clean(c.Request().Context(), retention)
	if err != nil {
		s.logger.Error("manual cleanup failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "cleanup failed")
	}
	return c.JSON(http.StatusOK, CleanResponse{Deleted: deleted})
}

// SettingsResponse is the response body for GET /api/settings.
type SettingsResponse struct {
	TextBackend  string `json:"text_backend"`
	ImageBackend string `json:"image_backend"`
	IdeasBackend string `json:"ideas_backend"`
}

// handleGetSettings returns the AI backend selection applied to new tasks.
func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.store.GetSettings(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to load settings", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load settings")
	}
	return c.JSON(http.StatusOK, SettingsResponse{
		TextBackend:  valueOr(settings, store.SettingTextBackend, ai.BackendStub),
		ImageBackend: valueOr(settings, store.SettingImageBackend, ai.BackendStub),
		IdeasBackend: valueOr(settings, store.SettingIdeasBackend, ai.BackendStub),
	})
}

func valueOr(settings map[string]string, key, fallback string) string {
	if v := settings[key]; v != "" {
		return v
	}
	return fallback
}

// SettingsRequest is the request body for PUT /api/settings. Empty fields are
// left unchanged.
type SettingsRequest struct {
	TextBackend  string `json:"text_backend"`
	ImageBackend string `json:"image_backend"`
	IdeasBackend string `json:"ideas_backend"`
}

// handlePutSettings updates the AI backend selection. Changes apply to tasks
// created afterwards only.
func (s *Server) handlePutSettings(c echo.Context) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	values := make(map[string]string)
	for key, backend := range map[string]string{
		store.SettingTextBackend:  req.TextBackend,
		store.SettingImageBackend: req.ImageBackend,
		store.SettingIdeasBackend: req.IdeasBackend,
	} {
		if backend == "" {
			continue
		}
		if backend != ai.BackendOpenAI && backend != ai.BackendStub {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("unknown backend %q (must be 'openai' or 'stub')", backend))
		}
		values[key] = backend
	}
	if len(values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no settings provided")
	}

	if err := s.store.PutSettings(c.Request().Context(), values); err != nil {
		s.logger.Error("failed to save settings", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save settings")
	}
	return s.handleGetSettings(c)
}

// ExportEntry is one export history item.
type ExportEntry struct {
	Format    string    `json:"format"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// handleExportHistory returns a result's exports, newest first.
func (s *Server) handleExportHistory(c echo.Context) error {
	ctx := c.Request().Context()
	resultID := c.Param("result_id")

	if _, err := s.store.GetResult(ctx, resultID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "result not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load result")
	}

	records, err := s.store.ListExports(ctx, resultID)
	if err != nil {
		s.logger.Error("failed to list exports", zap.String("result_id", resultID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list exports")
	}

	out := make([]ExportEntry, 0, len(records))
	for _, record := range records {
		out = append(out, ExportEntry{
			Format:    record.Format,
			FilePath:  record.FilePath,
			CreatedAt: record.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// ExportRequest is the request body for POST /api/export/:result_id.
type ExportRequest struct {
	Format string `json:"format"`
}

// ExportResponse is the response body for POST /api/export/:result_id.
type ExportResponse struct {
	ResultID string `json:"result_id"`
	Format   string `json:"format"`
	FilePath string `json:"file_path"`
}

// handleExport writes a result to a file in the requested format.
func (s *Server) handleExport(c echo.Context) error {
	if s.exports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "export is not configured")
	}

	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Format == "" {
		req.Format = export.FormatMarkdown
	}

	resultID := c.Param("result_id")
	path, err := s.exports.Export(c.Request().Context(), resultID, req.Format)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "result not found")
		case errors.Is(err, export.ErrUnknownFormat):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("export failed", zap.String("result_id", resultID), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "export failed")
		}
	}

	return c.JSON(http.StatusOK, ExportResponse{
		ResultID: resultID,
		Format:   req.Format,
		FilePath: path,
	})
}
