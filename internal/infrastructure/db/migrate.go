package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS import_runs (
  id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  source_url TEXT NOT NULL,
  queue_job_id TEXT,
  status TEXT NOT NULL,
  start_time TIMESTAMPTZ,
  end_time TIMESTAMPTZ,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  total_fetched INT NOT NULL DEFAULT 0,
  total_count INT NOT NULL DEFAULT 0,
  new_count INT NOT NULL DEFAULT 0,
  updated_count INT NOT NULL DEFAULT 0,
  failed_count INT NOT NULL DEFAULT 0,
  new_jobs JSONB NOT NULL DEFAULT '[]',
  updated_jobs JSONB NOT NULL DEFAULT '[]',
  failed_jobs JSONB NOT NULL DEFAULT '[]',
  errors JSONB NOT NULL DEFAULT '[]',
  retry_count INT NOT NULL DEFAULT 0,
  last_retry_at TIMESTAMPTZ,
  metadata JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CHECK (status IN ('pending','processing','completed','failed','partial'))
);
CREATE INDEX IF NOT EXISTS idx_import_runs_created_at ON import_runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs (status);
CREATE INDEX IF NOT EXISTS idx_import_runs_source_url ON import_runs (source_url);

CREATE TABLE IF NOT EXISTS job_records (
  id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  source_id TEXT NOT NULL,
  source_name TEXT NOT NULL,
  source_feed_url TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  categories JSONB NOT NULL DEFAULT '[]',
  job_type TEXT NOT NULL,
  salary JSONB,
  source_url TEXT NOT NULL DEFAULT '',
  apply_url TEXT NOT NULL DEFAULT '',
  published_date TIMESTAMPTZ,
  expiry_date TIMESTAMPTZ,
  raw_data JSONB,
  status TEXT NOT NULL DEFAULT 'active',
  last_import_id UUID,
  import_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT ux_job_records_source UNIQUE (source_id, source_name),
  CHECK (job_type IN ('full-time','part-time','contract','freelance','internship','temporary')),
  CHECK (status IN ('active','expired','filled','deleted'))
);
CREATE INDEX IF NOT EXISTS idx_job_records_company ON job_records (company);
CREATE INDEX IF NOT EXISTS idx_job_records_published_date ON job_records (published_date DESC);
`

// Open connects gorm to Postgres with SQL logging silenced.
func Open(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables and indexes if they are missing.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(schemaSQL).Error; err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
