package queue

import (
	"strconv"
	"time"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

// priorityWeight spaces priorities far enough apart that the millisecond
// timestamp only breaks ties within one priority.
const priorityWeight = 1e13

type keys struct {
	prefix    string
	id        string
	wait      string
	active    string
	delayed   string
	completed string
	failed    string
	paused    string
}

func newKeys(name string) keys {
	prefix := "jobimport:" + name + ":"
	return keys{
		prefix:    prefix,
		id:        prefix + "id",
		wait:      prefix + "wait",
		active:    prefix + "active",
		delayed:   prefix + "delayed",
		completed: prefix + "completed",
		failed:    prefix + "failed",
		paused:    prefix + "paused",
	}
}

func (k keys) jobPrefix() string {
	return k.prefix + "job:"
}

func (k keys) job(id string) string {
	return k.jobPrefix() + id
}

func (k keys) set(state domain.State) (string, bool) {
	switch state {
	case domain.StateWaiting:
		return k.wait, true
	case domain.StateActive:
		return k.active, true
	case domain.StateDelayed:
		return k.delayed, true
	case domain.StateCompleted:
		return k.completed, true
	case domain.StateFailed:
		return k.failed, true
	}
	return "", false
}

// waitScore orders the wait set: lower priority value first, then FIFO.
func waitScore(priority int, at time.Time) float64 {
	return float64(priority)*priorityWeight + float64(at.UnixMilli())
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
