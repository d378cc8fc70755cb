package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

type StartImportInput struct {
	SourceLocator string
	Metadata      map[string]any
	Priority      int
	Delay         time.Duration
}

type StartImportOutput struct {
	ImportRunID string `json:"import_run_id"`
	QueueJobID  string `json:"queue_job_id"`
	Status      string `json:"status"`
}

// StartImport records a pending run and enqueues it for the worker pool.
type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type startImport struct {
	runs     importrun.Repository
	producer queue.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewStartImport(runs importrun.Repository, producer queue.Producer, logger *slog.Logger) StartImport {
	if logger == nil {
		logger = slog.Default()
	}
	return &startImport{runs: runs, producer: producer, logger: logger, now: time.Now}
}

func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	locator := strings.TrimSpace(in.SourceLocator)
	if !validLocator(locator) {
		return StartImportOutput{}, ErrInvalidImportSource
	}

	now := uc.now()
	run := importrun.NewRun(uuid.NewString(), locator, in.Metadata, now)
	if err := uc.runs.Create(ctx, run); err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrCreateImportRun, err)
	}

	queueJobID, err := uc.producer.Enqueue(ctx, queue.ImportPayload{
		SourceLocator: locator,
		ImportRunID:   run.ID,
		Metadata:      in.Metadata,
	}, queue.EnqueueOptions{Priority: in.Priority, Delay: in.Delay})
	if err != nil {
		failErr := run.Fail(importrun.ErrorEntry{
			Timestamp: now,
			Kind:      "enqueue_error",
			Message:   err.Error(),
			Context:   map[string]any{"sourceUrl": locator},
		}, now)
		if failErr == nil {
			if saveErr := uc.runs.Save(context.WithoutCancel(ctx), run); saveErr != nil {
				uc.logger.Error("save unqueued import run", "import_run_id", run.ID, "err", saveErr)
			}
		}
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	if err := uc.runs.SetQueueJobID(ctx, run.ID, queueJobID); err != nil {
		uc.logger.Warn("link queue entry to import run", "import_run_id", run.ID, "queue_job_id", queueJobID, "err", err)
	}

	uc.logger.Info("import queued", "import_run_id", run.ID, "queue_job_id", queueJobID, "source", locator)

	return StartImportOutput{
		ImportRunID: run.ID,
		QueueJobID:  queueJobID,
		Status:      "queued",
	}, nil
}

func validLocator(locator string) bool {
	if locator == "" {
		return false
	}
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "file":
		// Local feeds are relative to the feed directory and may not leave it.
		return filepath.IsLocal(filepath.FromSlash(strings.TrimPrefix(locator, "file://")))
	}
	return false
}
