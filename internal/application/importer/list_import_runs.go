package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ListImportRunsInput struct {
	Status string
	Page   int
	Limit  int
}

type ListImportRunsOutput struct {
	Items      []ImportRunOutput `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int64             `json:"total"`
	TotalPages int64             `json:"totalPages"`
}

type ImportStatsOutput struct {
	TotalRuns    int64                      `json:"totalRuns"`
	ByStatus     map[importrun.Status]int64 `json:"byStatus"`
	TotalFetched int64                      `json:"totalFetched"`
	New          int64                      `json:"new"`
	Updated      int64                      `json:"updated"`
	Failed       int64                      `json:"failed"`
	SuccessRate  float64                    `json:"successRate"`
}

// ListImportRuns pages through run history, newest first, and aggregates it.
type ListImportRuns interface {
	Execute(ctx context.Context, in ListImportRunsInput) (ListImportRunsOutput, error)
	Stats(ctx context.Context) (ImportStatsOutput, error)
}

type listImportRuns struct {
	runs importrun.Repository
}

func NewListImportRuns(runs importrun.Repository) ListImportRuns {
	return &listImportRuns{runs: runs}
}

func (uc *listImportRuns) Execute(ctx context.Context, in ListImportRunsInput) (ListImportRunsOutput, error) {
	var status importrun.Status
	if raw := strings.TrimSpace(in.Status); raw != "" {
		parsed, ok := importrun.ParseStatus(raw)
		if !ok {
			return ListImportRunsOutput{}, fmt.Errorf("%w: %q", ErrInvalidRunStatus, raw)
		}
		status = parsed
	}

	page := max(in.Page, 1)
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)

	runs, total, err := uc.runs.List(ctx, importrun.ListFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return ListImportRunsOutput{}, fmt.Errorf("%w: %v", ErrListImportRuns, err)
	}

	items := make([]ImportRunOutput, 0, len(runs))
	for _, run := range runs {
		items = append(items, toImportRunOutput(run))
	}

	return ListImportRunsOutput{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

func (uc *listImportRuns) Stats(ctx context.Context) (ImportStatsOutput, error) {
	summary, err := uc.runs.Summarize(ctx)
	if err != nil {
		return ImportStatsOutput{}, fmt.Errorf("%w: %v", ErrListImportRuns, err)
	}

	byStatus := summary.ByStatus
	if byStatus == nil {
		byStatus = map[importrun.Status]int64{}
	}

	return ImportStatsOutput{
		TotalRuns:    summary.TotalRuns,
		ByStatus:     byStatus,
		TotalFetched: summary.TotalFetched,
		New:          summary.New,
		Updated:      summary.Updated,
		Failed:       summary.Failed,
		SuccessRate:  summary.SuccessRate(),
	}, nil
}
