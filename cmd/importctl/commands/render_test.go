package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

func TestRenderRunIncludesFailures(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := app.ImportRunOutput{
		ID:         "run-1",
		SourceURL:  "https://jobs.example.com/feed",
		Status:     importrun.StatusPartial,
		StartTime:  &started,
		DurationMS: 1500,
		Statistics: importrun.Statistics{Total: 3, New: 1, Updated: 1, Failed: 1},
		FailedJobs: []importrun.FailedJob{{SourceID: "abc", Title: "Broken posting", Reason: "missing title"}},
		Errors: []importrun.ErrorEntry{
			{Timestamp: started, Kind: "partial_failure", Message: "1 record failed"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, run))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "Broken posting")
	assert.Contains(t, out, "partial_failure")
}

func TestRenderRunOmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, app.ImportRunOutput{ID: "run-2", Status: importrun.StatusPending}))

	out := buf.String()
	assert.NotContains(t, out, "Errors:")
	assert.NotContains(t, out, "Failed records:")
}

func TestRenderRunListFooter(t *testing.T) {
	out := app.ListImportRunsOutput{
		Items: []app.ImportRunOutput{
			{ID: "run-a", Status: importrun.StatusCompleted, SourceURL: "https://a.example.com/rss"},
		},
		Page:       1,
		Limit:      20,
		Total:      1,
		TotalPages: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, renderRunList(&buf, out))
	assert.Contains(t, buf.String(), "run-a")
	assert.Contains(t, buf.String(), "page 1/1, 1 runs")
}

func TestRenderRunListEmptyShowsOnePage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRunList(&buf, app.ListImportRunsOutput{Page: 1, Limit: 20}))
	assert.Contains(t, buf.String(), "page 1/1, 0 runs")
}

func TestRenderStatsListsStatuses(t *testing.T) {
	stats := app.ImportStatsOutput{
		TotalRuns: 3,
		ByStatus: map[importrun.Status]int64{
			importrun.StatusFailed:    1,
			importrun.StatusCompleted: 2,
		},
		New:         10,
		SuccessRate: 90.5,
	}

	var buf bytes.Buffer
	require.NoError(t, renderStats(&buf, stats))

	out := buf.String()
	assert.Contains(t, out, "Runs completed")
	assert.Contains(t, out, "Runs failed")
	assert.Contains(t, out, "90.5%")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Runs completed")), bytes.Index(buf.Bytes(), []byte("Runs failed")))
}

func TestRenderQueueEntries(t *testing.T) {
	entries := []queue.Entry{{
		ID:           "7",
		State:        queue.StateFailed,
		Payload:      queue.ImportPayload{ImportRunID: "run-9"},
		AttemptsMade: 3,
		MaxAttempts:  3,
		FailedReason: "feed unreachable",
		CreatedAt:    time.Now(),
	}}

	var buf bytes.Buffer
	require.NoError(t, renderQueueEntries(&buf, entries))

	out := buf.String()
	assert.Contains(t, out, "run-9")
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "feed unreachable")
}

func TestFormatTimeNil(t *testing.T) {
	assert.Equal(t, "-", formatTime(nil))
	assert.Equal(t, "-", formatTime(&time.Time{}))
}
