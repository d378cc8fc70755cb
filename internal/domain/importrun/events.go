package importrun

import (
	"context"
	"time"
)

const (
	EventProgress = "import:progress"
	EventComplete = "import:complete"
	EventFailed   = "import:failed"
)

// Event is one notification about a run. The concrete types below are the
// full set.
type Event interface {
	EventName() string
	RunID() string
}

type ProgressEvent struct {
	ImportRunID string    `json:"importRunId"`
	Progress    float64   `json:"progress"`
	Processed   int       `json:"processed"`
	Total       int       `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e ProgressEvent) EventName() string { return EventProgress }
func (e ProgressEvent) RunID() string     { return e.ImportRunID }

type CompleteEvent struct {
	ImportRunID string     `json:"importRunId"`
	Statistics  Statistics `json:"statistics"`
	Status      Status     `json:"status"`
	Timestamp   time.Time  `json:"timestamp"`
}

func (e CompleteEvent) EventName() string { return EventComplete }
func (e CompleteEvent) RunID() string     { return e.ImportRunID }

type FailedEvent struct {
	ImportRunID string    `json:"importRunId"`
	Error       string    `json:"error"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e FailedEvent) EventName() string { return EventFailed }
func (e FailedEvent) RunID() string     { return e.ImportRunID }

// Publisher delivers events best-effort. Implementations must not block the
// caller on slow or missing subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
