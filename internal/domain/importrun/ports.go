package importrun

import (
	"context"
	"time"
)

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Summary aggregates the run history for reporting.
type Summary struct {
	TotalRuns    int64            `json:"totalRuns"`
	ByStatus     map[Status]int64 `json:"byStatus"`
	TotalFetched int64            `json:"totalFetched"`
	New          int64            `json:"new"`
	Updated      int64            `json:"updated"`
	Failed       int64            `json:"failed"`
}

func (s Summary) SuccessRate() float64 {
	total := s.New + s.Updated + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.New+s.Updated) / float64(total) * 100
}

type Repository interface {
	Create(ctx context.Context, run *Run) error
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	SetQueueJobID(ctx context.Context, id, queueJobID string) error
	List(ctx context.Context, filter ListFilter) ([]Run, int64, error)
	Summarize(ctx context.Context) (Summary, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
