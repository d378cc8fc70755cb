package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

const (
	maintenanceBatch = 100
	stalledReason    = "lease expired before the job finished"
)

// RedisQueue keeps every entry as a hash and tracks its state through one
// sorted set per state. Every state change is atomic so an entry is never in
// two sets at once, and changes to a claimed entry require the token
// of the claim that still holds it.
type RedisQueue struct {
	rdb    redis.UniversalClient
	keys   keys
	policy domain.Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisQueue(rdb redis.UniversalClient, name string, policy domain.Policy, logger *slog.Logger) *RedisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := domain.DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaults.MaxAttempts
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = defaults.BackoffBase
	}
	if policy.CompletedMaxAge <= 0 {
		policy.CompletedMaxAge = defaults.CompletedMaxAge
	}
	if policy.CompletedMaxCount <= 0 {
		policy.CompletedMaxCount = defaults.CompletedMaxCount
	}
	if policy.FailedMaxAge <= 0 {
		policy.FailedMaxAge = defaults.FailedMaxAge
	}
	if policy.LeaseDuration <= 0 {
		policy.LeaseDuration = defaults.LeaseDuration
	}
	if name == "" {
		name = "job-import"
	}

	return &RedisQueue{
		rdb:    rdb,
		keys:   newKeys(name),
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, payload domain.ImportPayload, opts domain.EnqueueOptions) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal queue payload: %w", err)
	}

	seq, err := q.rdb.Incr(ctx, q.keys.id).Result()
	if err != nil {
		return "", fmt.Errorf("allocate queue entry id: %w", err)
	}
	id := strconv.FormatInt(seq, 10)

	now := q.now()
	fields := map[string]any{
		"name":         domain.JobImportRun,
		"data":         string(data),
		"priority":     opts.Priority,
		"attemptsMade": 0,
		"maxAttempts":  q.policy.MaxAttempts,
		"progress":     0,
		"timestamp":    millis(now),
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if opts.Delay > 0 {
			at := now.Add(opts.Delay)
			fields["state"] = string(domain.StateDelayed)
			fields["availableAt"] = millis(at)
			pipe.HSet(ctx, q.keys.job(id), fields)
			pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(at.UnixMilli()), Member: id})
			return nil
		}
		fields["state"] = string(domain.StateWaiting)
		pipe.HSet(ctx, q.keys.job(id), fields)
		pipe.ZAdd(ctx, q.keys.wait, redis.Z{Score: waitScore(opts.Priority, now), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store queue entry: %w", err)
	}

	return id, nil
}

// Claim returns nil when the queue is paused or has nothing waiting. The
// returned entry carries a fresh lease token; finishing it requires that token.
func (q *RedisQueue) Claim(ctx context.Context) (*domain.Entry, error) {
	now := q.now()
	id, err := claimScript.Run(ctx, q.rdb,
		[]string{q.keys.wait, q.keys.active, q.keys.paused},
		millis(now), millis(now.Add(q.policy.LeaseDuration)), q.keys.jobPrefix(), uuid.NewString(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim queue entry: %w", err)
	}

	entry, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// runLeased runs a lease-guarded script and maps a rejected lease to
// ErrLeaseLost.
func (q *RedisQueue) runLeased(ctx context.Context, script *redis.Script, lease domain.Lease, target string, args ...any) error {
	keys := []string{q.keys.active, q.keys.job(lease.EntryID)}
	if target != "" {
		keys = append(keys, target)
	}
	argv := append([]any{lease.EntryID, lease.Token}, args...)

	ok, err := script.Run(ctx, q.rdb, keys, argv...).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (q *RedisQueue) ExtendLease(ctx context.Context, lease domain.Lease) error {
	deadline := q.now().Add(q.policy.LeaseDuration)
	if err := q.runLeased(ctx, extendScript, lease, "", millis(deadline)); err != nil {
		return fmt.Errorf("extend lease %s: %w", lease.EntryID, err)
	}
	return nil
}

func (q *RedisQueue) UpdateProgress(ctx context.Context, lease domain.Lease, progress int) error {
	progress = min(max(progress, 0), 100)
	if err := q.runLeased(ctx, progressScript, lease, "", progress); err != nil {
		return fmt.Errorf("update progress %s: %w", lease.EntryID, err)
	}
	return nil
}

func (q *RedisQueue) Complete(ctx context.Context, lease domain.Lease) error {
	now := q.now()
	if err := q.runLeased(ctx, completeScript, lease, q.keys.completed, millis(now)); err != nil {
		return fmt.Errorf("complete queue entry %s: %w", lease.EntryID, err)
	}

	return q.trim(ctx, q.keys.completed, now.Add(-q.policy.CompletedMaxAge), q.policy.CompletedMaxCount)
}

// Requeue records a failed attempt and parks the entry in delayed until the
// backoff elapses.
func (q *RedisQueue) Requeue(ctx context.Context, lease domain.Lease, reason string, delay time.Duration) error {
	at := q.now().Add(delay)
	if err := q.runLeased(ctx, requeueScript, lease, q.keys.delayed, millis(at), reason); err != nil {
		return fmt.Errorf("requeue queue entry %s: %w", lease.EntryID, err)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, lease domain.Lease, reason string) error {
	now := q.now()
	if err := q.runLeased(ctx, failScript, lease, q.keys.failed, millis(now), reason); err != nil {
		return fmt.Errorf("fail queue entry %s: %w", lease.EntryID, err)
	}

	return q.trim(ctx, q.keys.failed, now.Add(-q.policy.FailedMaxAge), 0)
}

func (q *RedisQueue) PromoteDelayed(ctx context.Context) (int, error) {
	n, err := promoteScript.Run(ctx, q.rdb,
		[]string{q.keys.delayed, q.keys.wait},
		millis(q.now()), q.keys.jobPrefix(), maintenanceBatch, strconv.FormatFloat(priorityWeight, 'f', 0, 64),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed entries: %w", err)
	}
	return n, nil
}

// RecoverStalled returns entries whose lease expired to the wait set, or to
// failed once their attempts are used up.
func (q *RedisQueue) RecoverStalled(ctx context.Context) (int, error) {
	n, err := recoverScript.Run(ctx, q.rdb,
		[]string{q.keys.active, q.keys.wait, q.keys.failed},
		millis(q.now()), q.keys.jobPrefix(), maintenanceBatch, strconv.FormatFloat(priorityWeight, 'f', 0, 64), stalledReason,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("recover stalled entries: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) Stats(ctx context.Context) (domain.Stats, error) {
	pipe := q.rdb.Pipeline()
	waiting := pipe.ZCard(ctx, q.keys.wait)
	active := pipe.ZCard(ctx, q.keys.active)
	completed := pipe.ZCard(ctx, q.keys.completed)
	failed := pipe.ZCard(ctx, q.keys.failed)
	delayed := pipe.ZCard(ctx, q.keys.delayed)
	paused := pipe.Exists(ctx, q.keys.paused)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Stats{}, fmt.Errorf("read queue stats: %w", err)
	}

	stats := domain.Stats{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
		Paused:    paused.Val() == 1,
	}
	stats.Total = stats.Waiting + stats.Active + stats.Delayed
	return stats, nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// List returns up to limit entries in state. Waiting entries come in claim
// order; finished ones newest first.
func (q *RedisQueue) List(ctx context.Context, state domain.State, limit int) ([]domain.Entry, error) {
	set, ok := q.keys.set(state)
	if !ok {
		return nil, fmt.Errorf("list %q: %w", state, domain.ErrInvalidState)
	}
	if limit <= 0 {
		limit = 100
	}

	var ids []string
	var err error
	if state == domain.StateCompleted || state == domain.StateFailed {
		ids, err = q.rdb.ZRevRange(ctx, set, 0, int64(limit-1)).Result()
	} else {
		ids, err = q.rdb.ZRange(ctx, set, 0, int64(limit-1)).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", state, err)
	}

	return q.loadMany(ctx, ids)
}

// Retry moves a failed entry back to waiting with a fresh attempt budget.
func (q *RedisQueue) Retry(ctx context.Context, id string) error {
	if _, err := q.rdb.ZScore(ctx, q.keys.failed, id).Result(); err != nil {
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("retry queue entry %s: %w", id, err)
		}
		exists, err := q.rdb.Exists(ctx, q.keys.job(id)).Result()
		if err != nil {
			return fmt.Errorf("retry queue entry %s: %w", id, err)
		}
		if exists == 0 {
			return fmt.Errorf("retry queue entry %s: %w", id, domain.ErrEntryNotFound)
		}
		return fmt.Errorf("retry queue entry %s: %w", id, domain.ErrEntryNotFailed)
	}

	priority, err := q.rdb.HGet(ctx, q.keys.job(id), "priority").Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("retry queue entry %s: %w", id, err)
	}

	now := q.now()
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.keys.failed, id)
		pipe.HSet(ctx, q.keys.job(id),
			"state", string(domain.StateWaiting),
			"attemptsMade", 0,
			"progress", 0,
		)
		pipe.HDel(ctx, q.keys.job(id), "failedReason", "finishedOn", "processedOn")
		pipe.ZAdd(ctx, q.keys.wait, redis.Z{Score: waitScore(priority, now), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("retry queue entry %s: %w", id, err)
	}
	return nil
}

// Clean removes every completed or failed entry and reports how many went.
// An entry that cannot be removed is logged and left for the next clean.
func (q *RedisQueue) Clean(ctx context.Context, state domain.State) (int, error) {
	if state != domain.StateCompleted && state != domain.StateFailed {
		return 0, fmt.Errorf("clean %q: %w", state, domain.ErrInvalidState)
	}
	set, _ := q.keys.set(state)

	ids, err := q.rdb.ZRange(ctx, set, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("clean %s entries: %w", state, err)
	}
	return q.remove(ctx, set, ids), nil
}

func (q *RedisQueue) Pause(ctx context.Context) error {
	return q.rdb.Set(ctx, q.keys.paused, "1", 0).Err()
}

func (q *RedisQueue) Resume(ctx context.Context) error {
	return q.rdb.Del(ctx, q.keys.paused).Err()
}

// trim drops entries finished before cutoff and, when keep > 0, all but the
// newest keep entries.
func (q *RedisQueue) trim(ctx context.Context, set string, cutoff time.Time, keep int) error {
	expired, err := q.rdb.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + millis(cutoff),
	}).Result()
	if err != nil {
		return fmt.Errorf("trim %s: %w", set, err)
	}
	q.remove(ctx, set, expired)

	if keep <= 0 {
		return nil
	}
	overflow, err := q.rdb.ZRange(ctx, set, 0, int64(-keep-1)).Result()
	if err != nil {
		return fmt.Errorf("trim %s: %w", set, err)
	}
	q.remove(ctx, set, overflow)
	return nil
}

// remove deletes entries one by one so a failure only skips that entry.
func (q *RedisQueue) remove(ctx context.Context, set string, ids []string) int {
	removed := 0
	for _, id := range ids {
		_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, q.keys.job(id))
			pipe.ZRem(ctx, set, id)
			return nil
		})
		if err != nil {
			q.logger.Warn("remove queue entry failed", "entry_id", id, "set", set, "err", err)
			continue
		}
		removed++
	}
	return removed
}

func (q *RedisQueue) load(ctx context.Context, id string) (*domain.Entry, error) {
	fields, err := q.rdb.HGetAll(ctx, q.keys.job(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load queue entry %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("load queue entry %s: %w", id, domain.ErrEntryNotFound)
	}
	entry, err := decodeEntry(id, fields)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (q *RedisQueue) loadMany(ctx context.Context, ids []string) ([]domain.Entry, error) {
	if len(ids) == 0 {
		return []domain.Entry{}, nil
	}

	pipe := q.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, q.keys.job(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load queue entries: %w", err)
	}

	entries := make([]domain.Entry, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		entry, err := decodeEntry(ids[i], fields)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(id string, fields map[string]string) (domain.Entry, error) {
	var payload domain.ImportPayload
	if raw := fields["data"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return domain.Entry{}, fmt.Errorf("decode queue entry %s: %w", id, err)
		}
	}

	entry := domain.Entry{
		ID:           id,
		Name:         fields["name"],
		Payload:      payload,
		Priority:     parseInt(fields["priority"]),
		State:        domain.State(fields["state"]),
		AttemptsMade: parseInt(fields["attemptsMade"]),
		MaxAttempts:  parseInt(fields["maxAttempts"]),
		Progress:     parseInt(fields["progress"]),
		FailedReason: fields["failedReason"],
		ProcessedAt:  parseMillis(fields["processedOn"]),
		FinishedAt:   parseMillis(fields["finishedOn"]),
		AvailableAt:  parseMillis(fields["availableAt"]),
		LeaseToken:   fields["leaseToken"],
	}
	if created := parseMillis(fields["timestamp"]); created != nil {
		entry.CreatedAt = *created
	}
	return entry, nil
}
