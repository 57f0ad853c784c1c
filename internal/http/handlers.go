package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/fetcher"
	"github.com/fyrsmithlabs/cloneplan/internal/pipeline"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// AnalyzeResponse is the response body for POST /analyze.
type AnalyzeResponse struct {
	TaskID string `json:"task_id"`
}

// handleAnalyze accepts a URL and starts the analysis pipeline.
func (s *Server) handleAnalyze(c echo.Context) error {
	url := strings.TrimSpace(c.FormValue("url"))
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url field is required")
	}

	taskID, err := s.runner.Start(c.Request().Context(), url)
	if err != nil {
		if errors.Is(err, fetcher.ErrInvalidURL) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("failed to start analysis", zap.String("url", url), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start analysis")
	}

	return c.JSON(http.StatusAccepted, AnalyzeResponse{TaskID: taskID})
}

// StepStatus is one pipeline step in a status response.
type StepStatus struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is the response body for GET /analyze/status/:task_id.
type StatusResponse struct {
	TaskID    string       `json:"task_id"`
	URL       string       `json:"url"`
	Status    string       `json:"status"`
	Progress  int          `json:"progress"`
	Message   string       `json:"message"`
	Error     string       `json:"error,omitempty"`
	ErrorKind string       `json:"error_kind,omitempty"`
	Hint      string       `json:"hint,omitempty"`
	ResultID  string       `json:"result_id,omitempty"`
	Delivered bool         `json:"delivered"`
	CreatedAt time.Time    `json:"created_at"`
	Steps     []StepStatus `json:"steps"`
}

// handleStatus returns the task's current state with per-step detail.
func (s *Server) handleStatus(c echo.Context) error {
	return s.taskStatus(c, c.Param("task_id"))
}

func (s *Server) taskStatus(c echo.Context, id string) error {
	task, err := s.store.GetTask(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("failed to load task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load task")
	}

	resp := StatusResponse{
		TaskID:    task.ID,
		URL:       task.URL,
		Status:    string(task.Status),
		Progress:  task.Progress,
		Message:   task.Message,
		Error:     task.Error,
		ErrorKind: task.ErrorKind,
		Hint:      hintFor(task.ErrorKind),
		ResultID:  task.ResultID,
		Delivered: task.Delivered,
		CreatedAt: task.CreatedAt,
		Steps:     make([]StepStatus, 0, len(task.Steps)),
	}
	for _, step := range task.Steps {
		resp.Steps = append(resp.Steps, StepStatus{
			Index:   step.StepIndex,
			Name:    step.Name,
			Status:  string(step.Status),
			Message: step.Message,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// hintFor maps a tagged error kind to a user-facing hint. Fetch kinds carry
// the transport reason as a suffix.
func hintFor(kind string) string {
	if kind == "" {
		return ""
	}
	if detail, ok := strings.CutPrefix(kind, pipeline.KindFetch+":"); ok {
		switch fetcher.Reason(detail) {
		case fetcher.ReasonTimeout:
			return "The site took too long to respond. It may be slow or blocking automated access; try again later."
		case fetcher.ReasonDNS:
			return "The domain could not be resolved. Check the address for typos."
		case fetcher.ReasonConnection:
			return "The site could not be reached. It may be down or refusing connections."
		case fetcher.ReasonForbidden:
			return "The site refused access (403). It likely blocks automated clients."
		case fetcher.ReasonNotFound:
			return "The page was not found (404). Check the address."
		default:
			return "The site returned an unexpected response."
		}
	}
	switch kind {
	case pipeline.KindExtract:
		return "The page content could not be analyzed. It may rely entirely on scripts."
	case pipeline.KindGenerate:
		return "The AI backend failed to generate content. Check the backend settings and try again."
	case pipeline.KindPersist:
		return "The result could not be saved. Check server logs."
	default:
		return ""
	}
}

// StructureResponse is the response body for GET /api/structure/:task_id.
type StructureResponse struct {
	TaskID           string          `json:"task_id"`
	URL              string          `json:"url"`
	Title            string          `json:"title"`
	UIStructure      json.RawMessage `json:"ui_structure"`
	DesignElements   json.RawMessage `json:"design_elements"`
	ContentStructure json.RawMessage `json:"content_structure"`
	Components       json.RawMessage `json:"components"`
	Pages            json.RawMessage `json:"pages"`
}

// handleStructure returns the structural extraction of a completed task.
// Incomplete tasks return 409 so clients keep polling the status endpoint.
func (s *Server) handleStructure(c echo.Context) error {
	ctx := c.Request().Context()
	task, err := s.store.GetTask(ctx, c.Param("task_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load task")
	}
	if task.Status != store.StatusCompleted {
		return echo.NewHTTPError(http.StatusConflict, "analysis is not completed")
	}

	result, err := s.store.GetResultByTask(ctx, task.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "result not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load result")
	}

	return c.JSON(http.StatusOK, StructureResponse{
		TaskID:           task.ID,
		URL:              result.URL,
		Title:            result.Title,
		UIStructure:      json.RawMessage(result.StructureJSON),
		DesignElements:   json.RawMessage(result.DesignJSON),
		ContentStructure: json.RawMessage(result.StructureJSON),
		Components:       json.RawMessage(result.ComponentsJSON),
		Pages:            json.RawMessage(result.PagesJSON),
	})
}

// ResultResponse is the response body for GET /results/:result_id.
type ResultResponse struct {
	ResultID    string          `json:"result_id"`
	TaskID      string          `json:"task_id"`
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Plan        string          `json:"plan"`
	Design      json.RawMessage `json:"design,omitempty"`
	Components  json.RawMessage `json:"components,omitempty"`
	Pages       json.RawMessage `json:"pages,omitempty"`
	Structure   json.RawMessage `json:"structure,omitempty"`
	Exported    bool            `json:"exported"`
	CreatedAt   time.Time       `json:"created_at"`
}

// handleResult serves the finished plan document and flags the owning task as
// delivered, so pollers stop redirecting to it.
func (s *Server) handleResult(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := s.store.GetResult(ctx, c.Param("result_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "result not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load result")
	}

	if err := s.store.MarkDelivered(ctx, result.TaskID); err != nil && !errors.Is(err, store.ErrNotFound) {
		// Delivery marking is best effort; serving the result wins.
		s.logger.Warn("failed to mark task delivered",
			zap.String("task_id", result.TaskID), zap.Error(err))
	}

	return c.JSON(http.StatusOK, ResultResponse{
		ResultID:    result.ID,
		TaskID:      result.TaskID,
		URL:         result.URL,
		Title:       result.Title,
		Description: result.Description,
		Plan:        result.PlanText,
		Design:      rawOrNil(result.DesignJSON),
		Components:  rawOrNil(result.ComponentsJSON),
		Pages:       rawOrNil(result.PagesJSON),
		Structure:   rawOrNil(result.StructureJSON),
		Exported:    result.Exported,
		CreatedAt:   result.CreatedAt,
	})
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
