package importer

import "errors"

var (
	ErrInvalidImportSource = errors.New("invalid import source")
	ErrCreateImportRun     = errors.New("failed to create import run")
	ErrEnqueueImportJob    = errors.New("failed to enqueue import job")
	ErrInvalidImportRunID  = errors.New("invalid import run id")
	ErrImportRunNotFound   = errors.New("import run not found")
	ErrRunNotRetryable     = errors.New("only failed or partial import runs can be retried")
	ErrGetImportRun        = errors.New("failed to get import run")
	ErrListImportRuns      = errors.New("failed to list import runs")
	ErrInvalidRunStatus    = errors.New("invalid import run status")
	ErrInvalidJobID        = errors.New("invalid job id")
	ErrJobNotFound         = errors.New("job not found")
	ErrGetJob              = errors.New("failed to get job")
	ErrQueueEntryNotFound  = errors.New("queue entry not found")
	ErrQueueEntryNotFailed = errors.New("queue entry is not in failed state")
	ErrInvalidQueueState   = errors.New("invalid queue state")
	ErrQueueUnavailable    = errors.New("queue unavailable")
)
