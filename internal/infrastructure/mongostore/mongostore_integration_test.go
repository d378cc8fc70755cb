package mongostore_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/mongostore"
)

func openTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}

	ctx := context.Background()
	client, err := mongostore.Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database("job_import_test_" + uuid.NewString()[:8])
	require.NoError(t, mongostore.EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestJobStoreInsertThenUpdateIntegration(t *testing.T) {
	db := openTestDatabase(t)
	store := mongostore.NewJobStore(db)
	query := mongostore.NewJobQuery(db)
	ctx := context.Background()

	draft := job.Draft{
		SourceID:   "guid-1",
		Title:      "Go Engineer",
		Company:    "Acme",
		Categories: []string{"Engineering"},
		JobType:    job.TypeFullTime,
		Salary:     &job.Salary{Min: 50000, Max: 70000, Currency: "USD", Period: "year"},
		Source:     job.Source{Name: "jobs.example.com", URL: "https://jobs.example.com/feed"},
	}

	first, err := store.Upsert(ctx, draft, "run-a")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, 1, first.Record.ImportCount)
	assert.Equal(t, job.StatusActive, first.Record.Status)

	draft.Title = "Senior Go Engineer"
	second, err := store.Upsert(ctx, draft, "run-b")
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, 2, second.Record.ImportCount)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, first.Record.CreatedAt.Unix(), second.Record.CreatedAt.Unix())

	got, err := query.GetByID(ctx, first.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", got.Title)
	assert.Equal(t, "run-b", got.LastImportID)
	require.NotNil(t, got.Salary)
	assert.Equal(t, int64(70000), got.Salary.Max)

	_, err = query.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestJobStoreReactivatesResightedJobIntegration(t *testing.T) {
	db := openTestDatabase(t)
	store := mongostore.NewJobStore(db)
	ctx := context.Background()

	draft := job.Draft{
		SourceID: "guid-1",
		Title:    "Go Engineer",
		JobType:  job.TypeFullTime,
		Source:   job.Source{Name: "jobs.example.com", URL: "https://jobs.example.com/feed"},
	}

	first, err := store.Upsert(ctx, draft, "run-a")
	require.NoError(t, err)
	_, err = db.Collection("job_records").UpdateByID(ctx, first.Record.ID,
		bson.M{"$set": bson.M{"status": string(job.StatusExpired)}})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, draft, "run-b")
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, job.StatusActive, second.Record.Status)
}

func TestJobStoreConcurrentMergeIntegration(t *testing.T) {
	db := openTestDatabase(t)
	store := mongostore.NewJobStore(db)

	draft := job.Draft{SourceID: "same", Title: "Data Engineer", Source: job.Source{Name: "feed"}}

	var inserted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Upsert(context.Background(), draft, uuid.NewString())
			if !assert.NoError(t, err) {
				return
			}
			if res.IsNew {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inserted.Load())
}

func TestRunRepositoryLifecycleIntegration(t *testing.T) {
	db := openTestDatabase(t)
	repo := mongostore.NewRunRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	run := domain.NewRun(uuid.NewString(), "https://jobs.example.com/feed", map[string]any{"trigger": "test"}, now)
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, repo.SetQueueJobID(ctx, run.ID, "3"))

	require.NoError(t, run.Begin(now, 1))
	run.RecordFetched(2, now)
	require.NoError(t, run.Finish(domain.Outcome{
		Statistics: domain.Statistics{Total: 2, New: 1, Updated: 1},
		NewJobs:    []domain.JobSummary{{JobID: "a", Title: "Go Engineer"}},
	}, now.Add(time.Second)))
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "3", got.QueueJobID)
	assert.Equal(t, time.Second, got.Duration)
	assert.Equal(t, 2, got.TotalFetched)
	assert.Len(t, got.NewJobs, 1)
	assert.Equal(t, "test", got.Metadata["trigger"])

	runs, total, err := repo.List(ctx, domain.ListFilter{Status: domain.StatusCompleted, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, runs, 1)

	summary, err := repo.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalRuns)
	assert.Equal(t, int64(1), summary.ByStatus[domain.StatusCompleted])
	assert.Equal(t, int64(2), summary.TotalFetched)
	assert.InDelta(t, 100.0, summary.SuccessRate(), 0.001)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	assert.ErrorIs(t, repo.Save(ctx, domain.NewRun(uuid.NewString(), "https://x", nil, now)), domain.ErrRunNotFound)

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
