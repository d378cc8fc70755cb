package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type QueueHealthOutput struct {
	Healthy bool        `json:"healthy"`
	Stats   queue.Stats `json:"stats"`
	Error   string      `json:"error,omitempty"`
}

type QueueCleanOutput struct {
	State   queue.State `json:"state"`
	Removed int         `json:"removed"`
}

// QueueAdmin is the operator surface over the import queue.
type QueueAdmin interface {
	Stats(ctx context.Context) (queue.Stats, error)
	Health(ctx context.Context) QueueHealthOutput
	List(ctx context.Context, state string, limit int) ([]queue.Entry, error)
	Retry(ctx context.Context, id string) error
	Clean(ctx context.Context, state string) (QueueCleanOutput, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

type queueAdmin struct {
	admin queue.Admin
}

func NewQueueAdmin(admin queue.Admin) QueueAdmin {
	return &queueAdmin{admin: admin}
}

func (uc *queueAdmin) Stats(ctx context.Context) (queue.Stats, error) {
	stats, err := uc.admin.Stats(ctx)
	if err != nil {
		return queue.Stats{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return stats, nil
}

func (uc *queueAdmin) Health(ctx context.Context) QueueHealthOutput {
	if err := uc.admin.Ping(ctx); err != nil {
		return QueueHealthOutput{Error: err.Error()}
	}
	stats, err := uc.admin.Stats(ctx)
	if err != nil {
		return QueueHealthOutput{Error: err.Error()}
	}
	return QueueHealthOutput{Healthy: true, Stats: stats}
}

func (uc *queueAdmin) List(ctx context.Context, state string, limit int) ([]queue.Entry, error) {
	parsed, err := queue.ParseState(state)
	if err != nil {
		return nil, ErrInvalidQueueState
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	entries, err := uc.admin.List(ctx, parsed, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if entries == nil {
		entries = []queue.Entry{}
	}
	return entries, nil
}

func (uc *queueAdmin) Retry(ctx context.Context, id string) error {
	if err := uc.admin.Retry(ctx, id); err != nil {
		return mapQueueError(err)
	}
	return nil
}

func (uc *queueAdmin) Clean(ctx context.Context, state string) (QueueCleanOutput, error) {
	parsed, err := queue.ParseState(state)
	if err != nil {
		return QueueCleanOutput{}, ErrInvalidQueueState
	}

	removed, err := uc.admin.Clean(ctx, parsed)
	if err != nil {
		return QueueCleanOutput{}, mapQueueError(err)
	}
	return QueueCleanOutput{State: parsed, Removed: removed}, nil
}

func (uc *queueAdmin) Pause(ctx context.Context) error {
	if err := uc.admin.Pause(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

func (uc *queueAdmin) Resume(ctx context.Context) error {
	if err := uc.admin.Resume(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

func mapQueueError(err error) error {
	switch {
	case errors.Is(err, queue.ErrEntryNotFound):
		return ErrQueueEntryNotFound
	case errors.Is(err, queue.ErrEntryNotFailed):
		return ErrQueueEntryNotFailed
	case errors.Is(err, queue.ErrInvalidState):
		return ErrInvalidQueueState
	default:
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
}
