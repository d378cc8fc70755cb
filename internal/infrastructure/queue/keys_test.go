package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

func TestKeysArePrefixedPerQueue(t *testing.T) {
	t.Parallel()

	k := newKeys("job-import")
	assert.Equal(t, "jobimport:job-import:wait", k.wait)
	assert.Equal(t, "jobimport:job-import:job:7", k.job("7"))

	set, ok := k.set(domain.StateFailed)
	require.True(t, ok)
	assert.Equal(t, k.failed, set)

	_, ok = k.set(domain.StatePaused)
	assert.False(t, ok)
}

func TestWaitScoreOrdersByPriorityThenTime(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Millisecond)

	assert.Less(t, waitScore(0, t0), waitScore(0, t1))
	assert.Less(t, waitScore(0, t1.Add(time.Hour)), waitScore(1, t0))
	assert.Less(t, waitScore(1, t1), waitScore(2, t0))
}

func TestDecodeEntry(t *testing.T) {
	t.Parallel()

	entry, err := decodeEntry("3", map[string]string{
		"name":         domain.JobImportRun,
		"data":         `{"sourceLocator":"https://jobicy.com/feed","importRunId":"run-1"}`,
		"priority":     "2",
		"state":        "failed",
		"attemptsMade": "3",
		"maxAttempts":  "3",
		"progress":     "30",
		"failedReason": "fetch failed",
		"timestamp":    "1735689600000",
		"finishedOn":   "1735689660000",
	})
	require.NoError(t, err)

	assert.Equal(t, "3", entry.ID)
	assert.Equal(t, "run-1", entry.Payload.ImportRunID)
	assert.Equal(t, domain.StateFailed, entry.State)
	assert.Equal(t, 4, entry.Attempt())
	assert.Equal(t, 30, entry.Progress)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), entry.CreatedAt)
	require.NotNil(t, entry.FinishedAt)
	assert.Nil(t, entry.ProcessedAt)

	_, err = decodeEntry("4", map[string]string{"data": "{"})
	assert.Error(t, err)
}
