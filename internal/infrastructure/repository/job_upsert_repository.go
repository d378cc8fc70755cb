package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

// JobUpsertRepository merges drafts with a single INSERT ... ON CONFLICT
// statement, so concurrent merges of the same natural key resolve inside
// Postgres.
type JobUpsertRepository struct {
	pool *pgxpool.Pool
}

func NewJobUpsertRepository(pool *pgxpool.Pool) *JobUpsertRepository {
	return &JobUpsertRepository{pool: pool}
}

const upsertJobSQL = `
INSERT INTO job_records (
  source_id, source_name, source_feed_url, title, company, description, location,
  categories, job_type, salary, source_url, apply_url, published_date, expiry_date,
  raw_data, status, last_import_id, import_count, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'active', $16, 1, NOW(), NOW())
ON CONFLICT (source_id, source_name) DO UPDATE
  SET source_feed_url = EXCLUDED.source_feed_url,
      title = EXCLUDED.title,
      company = EXCLUDED.company,
      description = EXCLUDED.description,
      location = EXCLUDED.location,
      categories = EXCLUDED.categories,
      job_type = EXCLUDED.job_type,
      salary = EXCLUDED.salary,
      source_url = EXCLUDED.source_url,
      apply_url = EXCLUDED.apply_url,
      published_date = EXCLUDED.published_date,
      expiry_date = EXCLUDED.expiry_date,
      raw_data = EXCLUDED.raw_data,
      status = 'active',
      last_import_id = EXCLUDED.last_import_id,
      import_count = job_records.import_count + 1,
      updated_at = NOW()
RETURNING id, status, import_count, created_at, updated_at, (xmax = 0) AS inserted
`

func (r *JobUpsertRepository) Upsert(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error) {
	categories := draft.Categories
	if categories == nil {
		categories = []string{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return job.UpsertResult{}, job.NewStoreError(draft, fmt.Errorf("encode categories: %w", err))
	}

	var salaryJSON []byte
	if draft.Salary != nil {
		if salaryJSON, err = json.Marshal(draft.Salary); err != nil {
			return job.UpsertResult{}, job.NewStoreError(draft, fmt.Errorf("encode salary: %w", err))
		}
	}

	var rawJSON []byte
	if draft.RawData != nil {
		if rawJSON, err = json.Marshal(draft.RawData); err != nil {
			return job.UpsertResult{}, job.NewStoreError(draft, fmt.Errorf("encode raw data: %w", err))
		}
	}

	record := job.Record{Draft: draft, LastImportID: importRunID}

	var status string
	var inserted bool
	err = r.pool.QueryRow(ctx, upsertJobSQL,
		draft.SourceID,
		draft.Source.Name,
		draft.Source.URL,
		draft.Title,
		draft.Company,
		draft.Description,
		draft.Location,
		categoriesJSON,
		string(draft.JobType),
		salaryJSON,
		draft.SourceURL,
		draft.ApplyURL,
		draft.PublishedDate,
		draft.ExpiryDate,
		rawJSON,
		nullableText(importRunID),
	).Scan(&record.ID, &status, &record.ImportCount, &record.CreatedAt, &record.UpdatedAt, &inserted)
	if err != nil {
		return job.UpsertResult{}, fmt.Errorf("upsert job %q: %w", draft.SourceID, err)
	}

	record.Status = job.Status(status)
	return job.UpsertResult{Record: record, IsNew: inserted}, nil
}
