package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/db"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/repository"
)

func openTestDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("failed schema setup: %v", err)
	}
	return gdb, dsn
}

func TestImportRunRepositoryLifecycleIntegration(t *testing.T) {
	gdb, _ := openTestDB(t)
	repo := repository.NewImportRunRepository(gdb)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	run := domain.NewRun(uuid.NewString(), "https://jobs.example.com/feed", map[string]any{"trigger": "test"}, now)
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { gdb.Exec("DELETE FROM import_runs WHERE id = ?", run.ID) })

	if err := repo.SetQueueJobID(ctx, run.ID, "17"); err != nil {
		t.Fatalf("set queue job id failed: %v", err)
	}

	if err := run.Begin(now, 1); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	run.RecordFetched(3, now)
	if err := run.Finish(domain.Outcome{
		Statistics: domain.Statistics{Total: 3, New: 2, Failed: 1},
		NewJobs:    []domain.JobSummary{{JobID: "a", Title: "Go Engineer", Company: "Acme"}},
		FailedJobs: []domain.FailedJob{domain.NewFailedJob("x", "", "missing required job fields: title")},
	}, now.Add(2*time.Second)); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if err := repo.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.StatusPartial {
		t.Fatalf("expected partial, got %s", got.Status)
	}
	if got.QueueJobID != "17" {
		t.Fatalf("expected queue job id to survive save, got %q", got.QueueJobID)
	}
	if got.Statistics.New != 2 || got.TotalFetched != 3 {
		t.Fatalf("unexpected statistics: %+v", got.Statistics)
	}
	if got.Duration != 2*time.Second {
		t.Fatalf("expected 2s duration, got %s", got.Duration)
	}
	if len(got.FailedJobs) != 1 || got.FailedJobs[0].Title != "unknown" {
		t.Fatalf("unexpected failed samples: %+v", got.FailedJobs)
	}
	if got.Metadata["trigger"] != "test" {
		t.Fatalf("unexpected metadata: %+v", got.Metadata)
	}

	runs, total, err := repo.List(ctx, domain.ListFilter{Status: domain.StatusPartial, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total < 1 || len(runs) < 1 {
		t.Fatalf("expected partial run in listing, got total=%d", total)
	}

	summary, err := repo.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.ByStatus[domain.StatusPartial] < 1 {
		t.Fatalf("expected partial count in summary, got %+v", summary.ByStatus)
	}
}

func TestImportRunRepositoryNotFoundIntegration(t *testing.T) {
	gdb, _ := openTestDB(t)
	repo := repository.NewImportRunRepository(gdb)

	_, err := repo.Get(context.Background(), "11111111-1111-1111-1111-111111111111")
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	err = repo.Save(context.Background(), domain.NewRun("11111111-1111-1111-1111-111111111111", "https://x", nil, time.Now()))
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on save, got %v", err)
	}
}

func TestImportRunRepositoryDeleteOlderThanIntegration(t *testing.T) {
	gdb, _ := openTestDB(t)
	repo := repository.NewImportRunRepository(gdb)
	ctx := context.Background()

	old := domain.NewRun(uuid.NewString(), "https://jobs.example.com/old", nil, time.Now().Add(-90*24*time.Hour))
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-60*24*time.Hour))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted < 1 {
		t.Fatalf("expected at least one deleted run, got %d", deleted)
	}
	if _, err := repo.Get(ctx, old.ID); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected old run to be gone, got %v", err)
	}
}
