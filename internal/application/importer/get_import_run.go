package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

type GetImportRunInput struct {
	ID string
}

type ImportRunOutput struct {
	ID            string                 `json:"id"`
	SourceURL     string                 `json:"sourceUrl"`
	QueueJobID    string                 `json:"queueJobId,omitempty"`
	Status        importrun.Status       `json:"status"`
	StartTime     *time.Time             `json:"startTime,omitempty"`
	EndTime       *time.Time             `json:"endTime,omitempty"`
	DurationMS    int64                  `json:"duration"`
	TotalFetched  int                    `json:"totalFetched"`
	Statistics    importrun.Statistics   `json:"statistics"`
	TotalImported int                    `json:"totalImported"`
	SuccessRate   float64                `json:"successRate"`
	NewJobs       []importrun.JobSummary `json:"newJobs"`
	UpdatedJobs   []importrun.JobSummary `json:"updatedJobs"`
	FailedJobs    []importrun.FailedJob  `json:"failedJobs"`
	Errors        []importrun.ErrorEntry `json:"errors"`
	RetryCount    int                    `json:"retryCount"`
	LastRetryAt   *time.Time             `json:"lastRetryAt,omitempty"`
	Metadata      map[string]any         `json:"metadata"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func toImportRunOutput(run importrun.Run) ImportRunOutput {
	return ImportRunOutput{
		ID:            run.ID,
		SourceURL:     run.SourceLocator,
		QueueJobID:    run.QueueJobID,
		Status:        run.Status,
		StartTime:     run.StartTime,
		EndTime:       run.EndTime,
		DurationMS:    run.Duration.Milliseconds(),
		TotalFetched:  run.TotalFetched,
		Statistics:    run.Statistics,
		TotalImported: run.TotalImported(),
		SuccessRate:   run.SuccessRate(),
		NewJobs:       nonNil(run.NewJobs),
		UpdatedJobs:   nonNil(run.UpdatedJobs),
		FailedJobs:    nonNil(run.FailedJobs),
		Errors:        nonNil(run.Errors),
		RetryCount:    run.RetryCount,
		LastRetryAt:   run.LastRetryAt,
		Metadata:      run.Metadata,
		CreatedAt:     run.CreatedAt,
		UpdatedAt:     run.UpdatedAt,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

type GetImportRun interface {
	Execute(ctx context.Context, in GetImportRunInput) (ImportRunOutput, error)
}

type getImportRun struct {
	runs importrun.Repository
}

func NewGetImportRun(runs importrun.Repository) GetImportRun {
	return &getImportRun{runs: runs}
}

func (uc *getImportRun) Execute(ctx context.Context, in GetImportRunInput) (ImportRunOutput, error) {
	if _, err := uuid.Parse(in.ID); err != nil {
		return ImportRunOutput{}, ErrInvalidImportRunID
	}

	run, err := uc.runs.Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, importrun.ErrRunNotFound) {
			return ImportRunOutput{}, ErrImportRunNotFound
		}
		return ImportRunOutput{}, fmt.Errorf("%w: %v", ErrGetImportRun, err)
	}

	return toImportRunOutput(*run), nil
}
