package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDelayed   State = "delayed"
	StatePaused    State = "paused"
)

var (
	ErrEntryNotFound  = errors.New("queue entry not found")
	ErrEntryNotFailed = errors.New("queue entry is not in failed state")
	ErrInvalidState   = errors.New("invalid queue state")
	// ErrLeaseLost means the entry was reclaimed after this worker's lease
	// expired; the worker must drop it without touching its state.
	ErrLeaseLost = errors.New("queue entry lease lost")
)

// ParseState accepts the per-entry states that can be listed.
func ParseState(raw string) (State, error) {
	switch s := State(raw); s {
	case StateWaiting, StateActive, StateCompleted, StateFailed, StateDelayed:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
}

const JobImportRun = "import-run"

type ImportPayload struct {
	SourceLocator string         `json:"sourceLocator"`
	ImportRunID   string         `json:"importRunId"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type Entry struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Payload      ImportPayload `json:"data"`
	Priority     int           `json:"priority"`
	State        State         `json:"state"`
	AttemptsMade int           `json:"attemptsMade"`
	MaxAttempts  int           `json:"maxAttempts"`
	Progress     int           `json:"progress"`
	FailedReason string        `json:"failedReason,omitempty"`
	CreatedAt    time.Time     `json:"timestamp"`
	ProcessedAt  *time.Time    `json:"processedOn,omitempty"`
	FinishedAt   *time.Time    `json:"finishedOn,omitempty"`
	AvailableAt  *time.Time    `json:"availableAt,omitempty"`
	LeaseToken   string        `json:"-"`
}

// Lease identifies one claim of an entry.
type Lease struct {
	EntryID string
	Token   string
}

func (e Entry) Lease() Lease {
	return Lease{EntryID: e.ID, Token: e.LeaseToken}
}

// Attempt is the 1-based number of the execution in progress.
func (e Entry) Attempt() int {
	return e.AttemptsMade + 1
}

type EnqueueOptions struct {
	Priority int
	Delay    time.Duration
}

type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
	Paused    bool  `json:"paused"`
	Total     int64 `json:"total"`
}

type Policy struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	CompletedMaxAge   time.Duration
	CompletedMaxCount int
	FailedMaxAge      time.Duration
	LeaseDuration     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BackoffBase:       5 * time.Second,
		CompletedMaxAge:   24 * time.Hour,
		CompletedMaxCount: 100,
		FailedMaxAge:      7 * 24 * time.Hour,
		LeaseDuration:     60 * time.Second,
	}
}

// Backoff returns the delay before the next attempt after attemptsMade
// failures: base, 2*base, 4*base ...
func (p Policy) Backoff(attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	return p.BackoffBase * time.Duration(1<<(attemptsMade-1))
}

func (p Policy) Exhausted(attemptsMade int) bool {
	return attemptsMade >= p.MaxAttempts
}

// Producer is the enqueue side used by triggers.
type Producer interface {
	Enqueue(ctx context.Context, payload ImportPayload, opts EnqueueOptions) (string, error)
}

// Consumer is the side a worker pool drives.
type Consumer interface {
	Claim(ctx context.Context) (*Entry, error)
	ExtendLease(ctx context.Context, lease Lease) error
	UpdateProgress(ctx context.Context, lease Lease, progress int) error
	Complete(ctx context.Context, lease Lease) error
	Requeue(ctx context.Context, lease Lease, reason string, delay time.Duration) error
	Fail(ctx context.Context, lease Lease, reason string) error
	PromoteDelayed(ctx context.Context) (int, error)
	RecoverStalled(ctx context.Context) (int, error)
}

// Admin is the operator surface.
type Admin interface {
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	List(ctx context.Context, state State, limit int) ([]Entry, error)
	Retry(ctx context.Context, id string) error
	Clean(ctx context.Context, state State) (int, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}
