package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

type runExecutor interface {
	Execute(ctx context.Context, req RunRequest, progress ProgressFunc) error
}

type ImportWorkerConfig struct {
	Workers             int
	PollInterval        time.Duration
	HeartbeatInterval   time.Duration
	MaintenanceInterval time.Duration
	Policy              queue.Policy
}

// ImportWorker claims queue entries and hands each one to the runner.
// At most Workers entries are active in this process at a time.
type ImportWorker struct {
	queue  queue.Consumer
	runner runExecutor
	cfg    ImportWorkerConfig
	logger *slog.Logger

	once sync.Once
	wg   sync.WaitGroup
}

func NewImportWorker(consumer queue.Consumer, runner runExecutor, cfg ImportWorkerConfig, logger *slog.Logger) *ImportWorker {
	defaults := queue.DefaultPolicy()
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Policy.BackoffBase <= 0 {
		cfg.Policy.BackoffBase = defaults.BackoffBase
	}
	if cfg.Policy.LeaseDuration <= 0 {
		cfg.Policy.LeaseDuration = defaults.LeaseDuration
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.Policy.LeaseDuration / 2
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ImportWorker{
		queue:  consumer,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

func (w *ImportWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			w.wg.Add(1)
			go w.workerLoop(ctx, i)
		}
		w.wg.Add(1)
		go w.maintenanceLoop(ctx)
		w.logger.Info("import workers started", "workers", w.cfg.Workers)
	})
}

// Wait blocks until every loop started by Start has returned.
func (w *ImportWorker) Wait() {
	w.wg.Wait()
}

func (w *ImportWorker) workerLoop(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, err := w.queue.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("claim next import entry failed", "worker", id, "err", err)
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if entry == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessEntry(ctx, *entry); err != nil {
			w.logger.Error("process import entry failed", "worker", id, "entry_id", entry.ID, "err", err)
		}
	}
}

// maintenanceLoop moves due delayed entries back to waiting and puts entries
// whose lease ran out back in line.
func (w *ImportWorker) maintenanceLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := w.queue.PromoteDelayed(ctx); err != nil {
			w.logger.Warn("promote delayed entries failed", "err", err)
		} else if n > 0 {
			w.logger.Debug("promoted delayed entries", "count", n)
		}

		if n, err := w.queue.RecoverStalled(ctx); err != nil {
			w.logger.Warn("recover stalled entries failed", "err", err)
		} else if n > 0 {
			w.logger.Warn("recovered stalled entries", "count", n)
		}
	}
}

// ProcessEntry runs one claimed entry. Once started, a run is not cancelled by
// ctx; shutdown waits for it to reach a terminal state. If the lease was lost
// to another worker meanwhile, the entry is left to that worker.
func (w *ImportWorker) ProcessEntry(ctx context.Context, entry queue.Entry) error {
	runCtx := context.WithoutCancel(ctx)
	lease := entry.Lease()

	heartbeatCtx, stopHeartbeat := context.WithCancel(runCtx)
	var heartbeat sync.WaitGroup
	heartbeat.Add(1)
	go func() {
		defer heartbeat.Done()
		w.heartbeat(heartbeatCtx, lease)
	}()

	err := w.runner.Execute(runCtx, RunRequest{
		ImportRunID:   entry.Payload.ImportRunID,
		SourceLocator: entry.Payload.SourceLocator,
		Attempt:       entry.Attempt(),
	}, func(ctx context.Context, progress int) error {
		return w.queue.UpdateProgress(ctx, lease, progress)
	})

	stopHeartbeat()
	heartbeat.Wait()

	if err != nil {
		return w.dropLostLease(entry, w.onProcessingError(runCtx, entry, err))
	}

	if err := w.queue.Complete(runCtx, lease); err != nil {
		return w.dropLostLease(entry, fmt.Errorf("complete queue entry %s: %w", entry.ID, err))
	}
	return nil
}

func (w *ImportWorker) dropLostLease(entry queue.Entry, err error) error {
	if errors.Is(err, queue.ErrLeaseLost) {
		w.logger.Warn("queue entry reclaimed by another worker, dropping result",
			"entry_id", entry.ID,
			"import_run_id", entry.Payload.ImportRunID,
			"attempt", entry.Attempt(),
		)
		return nil
	}
	return err
}

func (w *ImportWorker) heartbeat(ctx context.Context, lease queue.Lease) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.queue.ExtendLease(ctx, lease)
			if errors.Is(err, queue.ErrLeaseLost) {
				w.logger.Warn("queue lease lost", "entry_id", lease.EntryID)
				return
			}
			if err != nil && ctx.Err() == nil {
				w.logger.Warn("extend queue lease failed", "entry_id", lease.EntryID, "err", err)
			}
		}
	}
}

func (w *ImportWorker) onProcessingError(ctx context.Context, entry queue.Entry, err error) error {
	reason := truncateReason(err.Error())

	maxAttempts := entry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = w.cfg.Policy.MaxAttempts
	}

	attempt := entry.Attempt()
	if attempt < maxAttempts {
		delay := w.cfg.Policy.Backoff(attempt)
		if requeueErr := w.queue.Requeue(ctx, entry.Lease(), reason, delay); requeueErr != nil {
			return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
		}
		w.logger.Warn("import entry requeued",
			"entry_id", entry.ID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
		)
		return err
	}

	if failErr := w.queue.Fail(ctx, entry.Lease(), reason); failErr != nil {
		return fmt.Errorf("%v; fail update failed: %w", err, failErr)
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
