package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

const (
	DefaultBatchSize = 50

	progressFetched  = 30.0
	progressBatchEnd = 90.0
)

type recordMerger interface {
	Merge(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error)
}

type BatchProgress struct {
	Progress  float64
	Processed int
	Total     int
	Batch     int
	Batches   int
}

type BatchProcessorConfig struct {
	BatchSize int
}

// BatchProcessor merges drafts in fixed-size batches. Records inside a batch
// run concurrently; batches run one after another in source order.
type BatchProcessor struct {
	merger    recordMerger
	batchSize int
	logger    *slog.Logger
}

func NewBatchProcessor(merger recordMerger, cfg BatchProcessorConfig, logger *slog.Logger) *BatchProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{merger: merger, batchSize: cfg.BatchSize, logger: logger}
}

type mergeResult struct {
	result job.UpsertResult
	err    error
}

// Process returns the outcome gathered so far together with any systemic
// error. Record errors are counted and sampled, never returned.
func (p *BatchProcessor) Process(ctx context.Context, importRunID string, drafts []job.Draft, onProgress func(BatchProgress)) (importrun.Outcome, error) {
	var outcome importrun.Outcome

	total := len(drafts)
	batches := (total + p.batchSize - 1) / p.batchSize

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		start := b * p.batchSize
		end := min(start+p.batchSize, total)
		batch := drafts[start:end]

		results := p.runBatch(ctx, importRunID, batch)

		var systemic error
		for i, r := range results {
			if r.err != nil && !IsRecordError(r.err) {
				if systemic == nil {
					systemic = r.err
				}
				continue
			}
			record(&outcome, batch[i], r)
		}
		if systemic != nil {
			return outcome, fmt.Errorf("batch %d/%d: %w", b+1, batches, systemic)
		}

		p.logger.Debug("batch merged",
			"import_run_id", importRunID,
			"batch", b+1,
			"batches", batches,
			"processed", end,
			"total", total,
		)

		if onProgress != nil {
			onProgress(BatchProgress{
				Progress:  progressFetched + float64(b+1)/float64(batches)*(progressBatchEnd-progressFetched),
				Processed: end,
				Total:     total,
				Batch:     b + 1,
				Batches:   batches,
			})
		}
	}

	return outcome, nil
}

func (p *BatchProcessor) runBatch(ctx context.Context, importRunID string, batch []job.Draft) []mergeResult {
	results := make([]mergeResult, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = mergeResult{err: fmt.Errorf("panic merging record %q: %v", batch[i].SourceID, rec)}
				}
			}()

			res, err := p.merger.Merge(ctx, batch[i], importRunID)
			results[i] = mergeResult{result: res, err: err}
		}(i)
	}
	wg.Wait()

	return results
}

func record(outcome *importrun.Outcome, d job.Draft, r mergeResult) {
	outcome.Statistics.Total++

	if r.err != nil {
		outcome.Statistics.Failed++
		if len(outcome.FailedJobs) < importrun.MaxSamples {
			outcome.FailedJobs = append(outcome.FailedJobs, importrun.NewFailedJob(d.SourceID, d.Title, r.err.Error()))
		}
		return
	}

	summary := importrun.JobSummary{
		JobID:   r.result.Record.ID,
		Title:   d.Title,
		Company: d.Company,
	}
	if r.result.IsNew {
		outcome.Statistics.New++
		if len(outcome.NewJobs) < importrun.MaxSamples {
			outcome.NewJobs = append(outcome.NewJobs, summary)
		}
		return
	}

	outcome.Statistics.Updated++
	if len(outcome.UpdatedJobs) < importrun.MaxSamples {
		outcome.UpdatedJobs = append(outcome.UpdatedJobs, summary)
	}
}
