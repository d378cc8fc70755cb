package echo

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
)

type ImportHandler struct {
	start app.StartImport
	retry app.RetryImport
	get   app.GetImportRun
	list  app.ListImportRuns
}

type startImportRequest struct {
	SourceURL string         `json:"source_url" validate:"required"`
	Priority  int            `json:"priority" validate:"gte=0"`
	DelayMS   int64          `json:"delay_ms" validate:"gte=0"`
	Metadata  map[string]any `json:"metadata"`
}

func NewImportHandler(start app.StartImport, retry app.RetryImport, get app.GetImportRun, list app.ListImportRuns) *ImportHandler {
	return &ImportHandler{start: start, retry: retry, get: get, list: list}
}

func (h *ImportHandler) StartImport(c echo.Context) error {
	var req startImportRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "validation_error", validationMessage(err))
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata["trigger"]; !ok {
		metadata["trigger"] = "api"
	}

	out, err := h.start.Execute(c.Request().Context(), app.StartImportInput{
		SourceLocator: req.SourceURL,
		Metadata:      metadata,
		Priority:      req.Priority,
		Delay:         time.Duration(req.DelayMS) * time.Millisecond,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidImportSource) {
			return respondError(c, http.StatusBadRequest, "invalid_source", "source_url must be an http(s) or file:// locator")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to enqueue import job")
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) RetryImport(c echo.Context) error {
	out, err := h.retry.Execute(c.Request().Context(), app.RetryImportInput{ImportRunID: c.Param("id")})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidImportRunID):
			return respondError(c, http.StatusBadRequest, "invalid_import_run_id", "id must be a valid UUID")
		case errors.Is(err, app.ErrImportRunNotFound):
			return respondError(c, http.StatusNotFound, "not_found", "import run not found")
		case errors.Is(err, app.ErrRunNotRetryable):
			return respondError(c, http.StatusConflict, "not_retryable", "only failed or partial import runs can be retried")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to retry import run")
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) GetImportRun(c echo.Context) error {
	out, err := h.get.Execute(c.Request().Context(), app.GetImportRunInput{ID: c.Param("id")})
	if err != nil {
		if errors.Is(err, app.ErrInvalidImportRunID) {
			return respondError(c, http.StatusBadRequest, "invalid_import_run_id", "id must be a valid UUID")
		}
		if errors.Is(err, app.ErrImportRunNotFound) {
			return respondError(c, http.StatusNotFound, "not_found", "import run not found")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to get import run")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) ListImportRuns(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "page must be an integer")
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "limit must be an integer")
	}

	out, err := h.list.Execute(c.Request().Context(), app.ListImportRunsInput{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidRunStatus) {
			return respondError(c, http.StatusBadRequest, "invalid_status", "status must be one of pending, processing, completed, failed, partial")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to list import runs")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) ImportStats(c echo.Context) error {
	out, err := h.list.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to aggregate import runs")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
