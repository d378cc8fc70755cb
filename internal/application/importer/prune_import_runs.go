package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

// PruneImportRuns deletes run history older than the retention window.
type PruneImportRuns struct {
	runs      importrun.Repository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewPruneImportRuns(runs importrun.Repository, retention time.Duration, logger *slog.Logger) *PruneImportRuns {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneImportRuns{runs: runs, retention: retention, logger: logger, now: time.Now}
}

func (uc *PruneImportRuns) Execute(ctx context.Context) (int64, error) {
	cutoff := uc.now().Add(-uc.retention)
	deleted, err := uc.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune import runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	uc.logger.Info("pruned import runs", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
