package echo_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	httpecho "github.com/mohammadpnp/job-feed-import/internal/interfaces/http/echo"
)

type fakeGetJobRecord struct {
	out job.Record
	err error
}

func (f *fakeGetJobRecord) Execute(ctx context.Context, in app.GetJobRecordInput) (job.Record, error) {
	if f.err != nil {
		return job.Record{}, f.err
	}
	return f.out, nil
}

func newJobServer(useCase app.GetJobRecord) *echo.Echo {
	e := echo.New()
	httpecho.RegisterRoutes(e, httpecho.Handlers{Job: httpecho.NewJobHandler(useCase)})
	return e
}

func TestGetJobHandlerSuccess(t *testing.T) {
	t.Parallel()

	e := newJobServer(&fakeGetJobRecord{out: job.Record{
		ID: runID,
		Draft: job.Draft{
			SourceID: "guid-1",
			Title:    "Go Engineer",
			JobType:  job.TypeContract,
			Source:   job.Source{Name: "jobs.example.com"},
		},
		Status:      job.StatusActive,
		ImportCount: 2,
	}})

	rec := serve(e, http.MethodGet, "/api/v1/jobs/"+runID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["id"] != runID || data["title"] != "Go Engineer" || data["jobType"] != "contract" {
		t.Fatalf("unexpected payload: %#v", data)
	}
	if data["importCount"] != float64(2) {
		t.Fatalf("unexpected import count: %#v", data["importCount"])
	}
}

func TestGetJobHandlerErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid id", err: app.ErrInvalidJobID, want: http.StatusBadRequest},
		{name: "not found", err: app.ErrJobNotFound, want: http.StatusNotFound},
		{name: "internal", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newJobServer(&fakeGetJobRecord{err: tc.err})
			rec := serve(e, http.MethodGet, "/api/v1/jobs/"+runID, nil)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
