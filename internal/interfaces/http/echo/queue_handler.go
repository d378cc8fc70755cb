package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
)

type QueueHandler struct {
	admin app.QueueAdmin
}

func NewQueueHandler(admin app.QueueAdmin) *QueueHandler {
	return &QueueHandler{admin: admin}
}

func (h *QueueHandler) Stats(c echo.Context) error {
	stats, err := h.admin.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to read queue stats")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: stats})
}

func (h *QueueHandler) Health(c echo.Context) error {
	out := h.admin.Health(c.Request().Context())
	status := http.StatusOK
	if !out.Healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, apiResponse{Data: out})
}

func (h *QueueHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "limit must be an integer")
	}

	entries, err := h.admin.List(c.Request().Context(), c.Param("state"), limit)
	if err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: entries})
}

func (h *QueueHandler) Retry(c echo.Context) error {
	if err := h.admin.Retry(c.Request().Context(), c.Param("id")); err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]string{"id": c.Param("id"), "state": "waiting"}})
}

func (h *QueueHandler) Clean(c echo.Context) error {
	out, err := h.admin.Clean(c.Request().Context(), c.Param("state"))
	if err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *QueueHandler) Pause(c echo.Context) error {
	if err := h.admin.Pause(c.Request().Context()); err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]bool{"paused": true}})
}

func (h *QueueHandler) Resume(c echo.Context) error {
	if err := h.admin.Resume(c.Request().Context()); err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]bool{"paused": false}})
}

func (h *QueueHandler) queueError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidQueueState):
		return respondError(c, http.StatusBadRequest, "invalid_state", err.Error())
	case errors.Is(err, app.ErrQueueEntryNotFound):
		return respondError(c, http.StatusNotFound, "not_found", "queue entry not found")
	case errors.Is(err, app.ErrQueueEntryNotFailed):
		return respondError(c, http.StatusConflict, "not_failed", "only failed queue entries can be retried")
	}
	return respondError(c, http.StatusServiceUnavailable, "queue_unavailable", "queue backend unavailable")
}
