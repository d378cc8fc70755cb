package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/domain/feed"
	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

const (
	progressStarted  = 10.0
	progressFinished = 100.0
	finalizeTimeout  = 10 * time.Second
)

type FeedReader interface {
	Read(ctx context.Context, locator string) ([]job.Draft, error)
}

// Recorder receives run-level telemetry.
type Recorder interface {
	RunFinished(status importrun.Status, elapsed time.Duration)
	RecordsMerged(stats importrun.Statistics)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(importrun.Status, time.Duration) {}
func (nopRecorder) RecordsMerged(importrun.Statistics)          {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, importrun.Event) {}

// RunRequest identifies the run a queue entry refers to.
type RunRequest struct {
	ImportRunID   string
	SourceLocator string
	Attempt       int
}

// ProgressFunc mirrors progress (0-100) onto the queue entry.
type ProgressFunc func(ctx context.Context, progress int) error

// ImportRunner drives one import run from processing to a terminal status.
type ImportRunner struct {
	runs      importrun.Repository
	reader    FeedReader
	batches   *BatchProcessor
	publisher importrun.Publisher
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func NewImportRunner(
	runs importrun.Repository,
	reader FeedReader,
	batches *BatchProcessor,
	publisher importrun.Publisher,
	recorder Recorder,
	logger *slog.Logger,
) *ImportRunner {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportRunner{
		runs:      runs,
		reader:    reader,
		batches:   batches,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute processes the run to completion. Systemic failures are recorded on
// the run, which ends failed, and then returned so the queue entry can apply
// its retry policy.
func (r *ImportRunner) Execute(ctx context.Context, req RunRequest, progress ProgressFunc) error {
	run, err := r.runs.Get(ctx, req.ImportRunID)
	if err != nil {
		return fmt.Errorf("load import run %s: %w", req.ImportRunID, err)
	}

	logger := r.logger.With("import_run_id", run.ID, "source", run.SourceLocator, "attempt", req.Attempt)

	if err := run.Begin(r.now(), req.Attempt); err != nil {
		if errors.Is(err, importrun.ErrInvalidTransition) && run.Status.Terminal() {
			logger.Warn("import run already finalized, skipping", "status", run.Status)
			return nil
		}
		return err
	}
	if err := r.runs.Save(ctx, run); err != nil {
		return r.fail(ctx, run, req, fmt.Errorf("save processing run: %w", err))
	}
	logger.Info("import run started")
	r.report(ctx, run.ID, progressStarted, 0, 0, progress)

	drafts, err := r.reader.Read(ctx, run.SourceLocator)
	if err != nil {
		return r.fail(ctx, run, req, err)
	}

	run.RecordFetched(len(drafts), r.now())
	if err := r.runs.Save(ctx, run); err != nil {
		return r.fail(ctx, run, req, fmt.Errorf("save fetched total: %w", err))
	}
	r.report(ctx, run.ID, progressFetched, 0, len(drafts), progress)

	outcome, err := r.batches.Process(ctx, run.ID, drafts, func(p BatchProgress) {
		r.report(ctx, run.ID, p.Progress, p.Processed, p.Total, progress)
	})
	r.recorder.RecordsMerged(outcome.Statistics)
	if err != nil {
		run.Statistics = outcome.Statistics
		return r.fail(ctx, run, req, err)
	}

	if err := run.Finish(outcome, r.now()); err != nil {
		return err
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := r.runs.Save(saveCtx, run); err != nil {
		return fmt.Errorf("save finished run: %w", err)
	}

	r.report(ctx, run.ID, progressFinished, outcome.Statistics.Total, len(drafts), progress)
	r.publisher.Publish(ctx, importrun.CompleteEvent{
		ImportRunID: run.ID,
		Statistics:  run.Statistics,
		Status:      run.Status,
		Timestamp:   r.now(),
	})
	r.recorder.RunFinished(run.Status, run.Duration)

	logger.Info("import run finished",
		"status", run.Status,
		"total", run.Statistics.Total,
		"new", run.Statistics.New,
		"updated", run.Statistics.Updated,
		"failed", run.Statistics.Failed,
		"duration", run.Duration,
	)
	return nil
}

func (r *ImportRunner) fail(ctx context.Context, run *importrun.Run, req RunRequest, cause error) error {
	now := r.now()
	entry := importrun.ErrorEntry{
		Timestamp: now,
		Kind:      feed.ErrorKind(cause),
		Message:   cause.Error(),
		Stack:     errorChain(cause),
		Context: map[string]any{
			"sourceUrl": run.SourceLocator,
			"attempt":   req.Attempt,
		},
	}

	logger := r.logger.With("import_run_id", run.ID, "source", run.SourceLocator, "attempt", req.Attempt)

	if err := run.Fail(entry, now); err != nil {
		logger.Error("mark import run failed", "err", err)
		return cause
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := r.runs.Save(saveCtx, run); err != nil {
		logger.Error("save failed import run", "err", err)
	}

	r.publisher.Publish(ctx, importrun.FailedEvent{
		ImportRunID: run.ID,
		Error:       entry.Message,
		Timestamp:   now,
	})
	r.recorder.RunFinished(run.Status, run.Duration)

	logger.Error("import run failed", "kind", entry.Kind, "err", cause)
	return cause
}

func (r *ImportRunner) report(ctx context.Context, runID string, progress float64, processed, total int, sink ProgressFunc) {
	if sink != nil {
		if err := sink(ctx, int(math.Round(progress))); err != nil {
			r.logger.Warn("update queue progress", "import_run_id", runID, "err", err)
		}
	}
	r.publisher.Publish(ctx, importrun.ProgressEvent{
		ImportRunID: runID,
		Progress:    progress,
		Processed:   processed,
		Total:       total,
		Timestamp:   r.now(),
	})
}

// errorChain renders the wrapped causes of err, outermost first.
func errorChain(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		if depth > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%T: %v", err, err)
		err = errors.Unwrap(err)
	}
	return b.String()
}
