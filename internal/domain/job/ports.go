package job

import "context"

type Store interface {
	Upsert(ctx context.Context, draft Draft, importRunID string) (UpsertResult, error)
}

type QueryRepository interface {
	GetByID(ctx context.Context, id string) (*Record, error)
}
