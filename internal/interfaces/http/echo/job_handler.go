package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
)

type JobHandler struct {
	useCase app.GetJobRecord
}

func NewJobHandler(useCase app.GetJobRecord) *JobHandler {
	return &JobHandler{useCase: useCase}
}

func (h *JobHandler) GetJob(c echo.Context) error {
	out, err := h.useCase.Execute(c.Request().Context(), app.GetJobRecordInput{
		ID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidJobID) {
			return respondError(c, http.StatusBadRequest, "invalid_job_id", "id must be a valid UUID")
		}
		if errors.Is(err, app.ErrJobNotFound) {
			return respondError(c, http.StatusNotFound, "not_found", "job not found")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to get job")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}
