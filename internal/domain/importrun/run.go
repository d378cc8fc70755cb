package importrun

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusPartial:
		return s, true
	}
	return "", false
}

const (
	MaxSamples       = 100
	maxErrorMessage  = 1000
	maxErrorStack    = 2000
	maxFailureReason = 500
	maxFailureSource = 200
	maxFailureTitle  = 100
)

type Statistics struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func (s Statistics) Imported() int {
	return s.New + s.Updated
}

// Classify maps final statistics to a terminal status.
// A run that stored nothing is failed even when every record was attempted.
func Classify(stats Statistics) Status {
	switch {
	case stats.Imported() == 0:
		return StatusFailed
	case stats.Failed > 0:
		return StatusPartial
	default:
		return StatusCompleted
	}
}

type JobSummary struct {
	JobID   string `json:"jobId"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

type FailedJob struct {
	SourceID string `json:"sourceId"`
	Title    string `json:"title"`
	Reason   string `json:"reason"`
}

// NewFailedJob builds a failure sample with bounded field sizes.
func NewFailedJob(sourceID, title, reason string) FailedJob {
	if title == "" {
		title = "unknown"
	}
	return FailedJob{
		SourceID: Truncate(sourceID, maxFailureSource),
		Title:    Truncate(title, maxFailureTitle),
		Reason:   Truncate(reason, maxFailureReason),
	}
}

type ErrorEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Outcome is what batch processing hands back for finalization.
type Outcome struct {
	Statistics  Statistics
	NewJobs     []JobSummary
	UpdatedJobs []JobSummary
	FailedJobs  []FailedJob
}

type Run struct {
	ID            string
	SourceLocator string
	QueueJobID    string
	Status        Status
	StartTime     *time.Time
	EndTime       *time.Time
	Duration      time.Duration
	Statistics    Statistics
	TotalFetched  int
	NewJobs       []JobSummary
	UpdatedJobs   []JobSummary
	FailedJobs    []FailedJob
	Errors        []ErrorEntry
	RetryCount    int
	LastRetryAt   *time.Time
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewRun(id, sourceLocator string, metadata map[string]any, now time.Time) *Run {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Run{
		ID:            id,
		SourceLocator: sourceLocator,
		Status:        StatusPending,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Begin moves the run into processing. When its queue entry is re-attempted
// (attempt > 1), a run failed by a systemic error or left processing by a
// crashed worker is re-entered; completed and partial runs stay terminal.
func (r *Run) Begin(now time.Time, attempt int) error {
	switch {
	case r.Status == StatusPending:
	case (r.Status == StatusFailed || r.Status == StatusProcessing) && attempt > 1:
		r.EndTime = nil
		r.Duration = 0
	default:
		return transitionError(r.Status, StatusProcessing)
	}

	r.Status = StatusProcessing
	r.StartTime = &now
	r.UpdatedAt = now
	return nil
}

func (r *Run) RecordFetched(total int, now time.Time) {
	r.TotalFetched = total
	r.UpdatedAt = now
}

// Finish classifies the run from its final statistics.
func (r *Run) Finish(outcome Outcome, now time.Time) error {
	if r.Status != StatusProcessing {
		return transitionError(r.Status, Classify(outcome.Statistics))
	}

	r.Statistics = outcome.Statistics
	r.NewJobs = capSamples(outcome.NewJobs)
	r.UpdatedJobs = capSamples(outcome.UpdatedJobs)
	r.FailedJobs = capSamples(outcome.FailedJobs)
	r.Status = Classify(outcome.Statistics)
	r.stop(now)
	return nil
}

// Fail records a systemic failure and moves the run straight to failed.
func (r *Run) Fail(entry ErrorEntry, now time.Time) error {
	if r.Status.Terminal() {
		return transitionError(r.Status, StatusFailed)
	}

	r.AppendError(entry)
	r.Status = StatusFailed
	r.stop(now)
	return nil
}

func (r *Run) AppendError(entry ErrorEntry) {
	entry.Message = Truncate(entry.Message, maxErrorMessage)
	entry.Stack = Truncate(entry.Stack, maxErrorStack)
	r.Errors = append(r.Errors, entry)
}

func (r *Run) Retryable() bool {
	return r.Status == StatusFailed || r.Status == StatusPartial
}

// MarkRetried records that a new run was spawned from this one.
func (r *Run) MarkRetried(now time.Time) error {
	if !r.Retryable() {
		return ErrNotRetryable
	}
	r.RetryCount++
	r.LastRetryAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Run) TotalImported() int {
	return r.Statistics.Imported()
}

func (r *Run) SuccessRate() float64 {
	if r.Statistics.Total == 0 {
		return 0
	}
	return float64(r.Statistics.Imported()) / float64(r.Statistics.Total) * 100
}

func (r *Run) stop(now time.Time) {
	r.EndTime = &now
	if r.StartTime != nil {
		r.Duration = now.Sub(*r.StartTime)
	} else {
		r.Duration = 0
	}
	r.UpdatedAt = now
}

func capSamples[T any](items []T) []T {
	if len(items) > MaxSamples {
		return items[:MaxSamples]
	}
	return items
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
