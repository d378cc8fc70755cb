package importer

import (
	"context"
	"errors"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

// UpsertEngine merges one draft into the store by its natural key. The
// store's unique (sourceId, source name) constraint is the only guard
// against concurrent merges of the same record.
type UpsertEngine struct {
	store job.Store
}

func NewUpsertEngine(store job.Store) *UpsertEngine {
	return &UpsertEngine{store: store}
}

// Merge returns a *job.ValidationError or *job.StoreError for failures that
// belong to this record only. Context errors are returned unwrapped.
func (e *UpsertEngine) Merge(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error) {
	if err := draft.Validate(); err != nil {
		return job.UpsertResult{}, err
	}

	result, err := e.store.Upsert(ctx, draft, importRunID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return job.UpsertResult{}, err
		}
		var storeErr *job.StoreError
		if errors.As(err, &storeErr) {
			return job.UpsertResult{}, err
		}
		return job.UpsertResult{}, job.NewStoreError(draft, err)
	}

	return result, nil
}

// IsRecordError reports whether err is confined to a single record.
func IsRecordError(err error) bool {
	var validationErr *job.ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	var storeErr *job.StoreError
	return errors.As(err, &storeErr)
}
