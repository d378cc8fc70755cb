package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

type RetryImportInput struct {
	ImportRunID string
}

type RetryImportOutput struct {
	RetryOf string `json:"retry_of"`
	StartImportOutput
}

// RetryImport re-imports the source of a failed or partial run as a new run
// and bumps the retry bookkeeping on the original.
type RetryImport interface {
	Execute(ctx context.Context, in RetryImportInput) (RetryImportOutput, error)
}

type retryImport struct {
	runs   importrun.Repository
	start  StartImport
	logger *slog.Logger
	now    func() time.Time
}

func NewRetryImport(runs importrun.Repository, start StartImport, logger *slog.Logger) RetryImport {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryImport{runs: runs, start: start, logger: logger, now: time.Now}
}

func (uc *retryImport) Execute(ctx context.Context, in RetryImportInput) (RetryImportOutput, error) {
	if _, err := uuid.Parse(in.ImportRunID); err != nil {
		return RetryImportOutput{}, ErrInvalidImportRunID
	}

	run, err := uc.runs.Get(ctx, in.ImportRunID)
	if err != nil {
		if errors.Is(err, importrun.ErrRunNotFound) {
			return RetryImportOutput{}, ErrImportRunNotFound
		}
		return RetryImportOutput{}, fmt.Errorf("%w: %v", ErrGetImportRun, err)
	}

	if !run.Retryable() {
		return RetryImportOutput{}, ErrRunNotRetryable
	}

	out, err := uc.start.Execute(ctx, StartImportInput{
		SourceLocator: run.SourceLocator,
		Metadata:      map[string]any{"retryOf": run.ID},
	})
	if err != nil {
		return RetryImportOutput{}, err
	}

	if err := run.MarkRetried(uc.now()); err != nil {
		return RetryImportOutput{}, err
	}
	if err := uc.runs.Save(ctx, run); err != nil {
		uc.logger.Warn("save retry count", "import_run_id", run.ID, "err", err)
	}

	return RetryImportOutput{RetryOf: run.ID, StartImportOutput: out}, nil
}
