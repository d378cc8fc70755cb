package queue_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/queue"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/queue"
)

func newTestQueue(t *testing.T, policy domain.Policy) (*queue.RedisQueue, *redis.Client) {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	name := "test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := rdb.Keys(ctx, fmt.Sprintf("jobimport:%s:*", name)).Result()
		if len(keys) > 0 {
			_ = rdb.Del(ctx, keys...).Err()
		}
	})

	return queue.NewRedisQueue(rdb, name, policy, nil), rdb
}

func payload(run string) domain.ImportPayload {
	return domain.ImportPayload{SourceLocator: "https://jobs.example.com/feed", ImportRunID: run}
}

func TestRedisQueueClaimOrder(t *testing.T) {
	q, _ := newTestQueue(t, domain.DefaultPolicy())
	ctx := context.Background()

	low, err := q.Enqueue(ctx, payload("low"), domain.EnqueueOptions{Priority: 5})
	require.NoError(t, err)
	first, err := q.Enqueue(ctx, payload("first"), domain.EnqueueOptions{})
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, payload("second"), domain.EnqueueOptions{})
	require.NoError(t, err)

	var order []string
	for i := 0; i < 3; i++ {
		entry, err := q.Claim(ctx)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, domain.StateActive, entry.State)
		order = append(order, entry.ID)
	}
	assert.Equal(t, []string{first, second, low}, order)

	entry, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisQueuePauseStopsClaims(t *testing.T) {
	q, _ := newTestQueue(t, domain.DefaultPolicy())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, payload("run-1"), domain.EnqueueOptions{})
	require.NoError(t, err)
	require.NoError(t, q.Pause(ctx))

	entry, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, entry)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Paused)
	assert.Equal(t, int64(1), stats.Waiting)

	require.NoError(t, q.Resume(ctx))
	entry, err = q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "run-1", entry.Payload.ImportRunID)
}

func TestRedisQueueRequeueThenFailThenRetry(t *testing.T) {
	q, _ := newTestQueue(t, domain.DefaultPolicy())
	ctx := context.Background()

	id, err := q.Enqueue(ctx, payload("run-1"), domain.EnqueueOptions{})
	require.NoError(t, err)

	entry, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Requeue(ctx, entry.Lease(), "fetch failed", 0))

	n, err := q.PromoteDelayed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err = q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Attempt())

	require.NoError(t, q.Fail(ctx, entry.Lease(), "fetch failed again"))

	failed, err := q.List(ctx, domain.StateFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "fetch failed again", failed[0].FailedReason)

	require.ErrorIs(t, q.Retry(ctx, "does-not-exist"), domain.ErrEntryNotFound)

	require.NoError(t, q.Retry(ctx, id))
	require.ErrorIs(t, q.Retry(ctx, id), domain.ErrEntryNotFailed)

	entry, err = q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.Attempt())
}

func TestRedisQueueRecoverStalled(t *testing.T) {
	policy := domain.DefaultPolicy()
	policy.LeaseDuration = 10 * time.Millisecond
	q, _ := newTestQueue(t, policy)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, payload("run-1"), domain.EnqueueOptions{})
	require.NoError(t, err)
	_, err = q.Claim(ctx)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	n, err := q.RecoverStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Attempt())
}

func TestRedisQueueCompleteAndClean(t *testing.T) {
	q, _ := newTestQueue(t, domain.DefaultPolicy())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, payload(fmt.Sprintf("run-%d", i)), domain.EnqueueOptions{})
		require.NoError(t, err)
		entry, err := q.Claim(ctx)
		require.NoError(t, err)
		require.NoError(t, q.UpdateProgress(ctx, entry.Lease(), 50))
		require.NoError(t, q.Complete(ctx, entry.Lease()))
	}

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Completed)
	assert.Equal(t, int64(0), stats.Total)

	removed, err := q.Clean(ctx, domain.StateCompleted)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = q.Clean(ctx, domain.StateWaiting)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}
