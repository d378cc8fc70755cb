package importer_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

type memRunRepo struct {
	mu        sync.Mutex
	runs      map[string]importrun.Run
	saves     int
	createErr error
	saveErr   error
	getErr    error
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: map[string]importrun.Run{}}
}

func (r *memRunRepo) Create(ctx context.Context, run *importrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *memRunRepo) Save(ctx context.Context, run *importrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.runs[run.ID] = *run
	return nil
}

func (r *memRunRepo) Get(ctx context.Context, id string) (*importrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	run, ok := r.runs[id]
	if !ok {
		return nil, importrun.ErrRunNotFound
	}
	return &run, nil
}

func (r *memRunRepo) SetQueueJobID(ctx context.Context, id, queueJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return importrun.ErrRunNotFound
	}
	run.QueueJobID = queueJobID
	r.runs[id] = run
	return nil
}

func (r *memRunRepo) List(ctx context.Context, filter importrun.ListFilter) ([]importrun.Run, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []importrun.Run
	for _, run := range r.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		all = append(all, run)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := min(filter.Offset, len(all))
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func (r *memRunRepo) Summarize(ctx context.Context) (importrun.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := importrun.Summary{ByStatus: map[importrun.Status]int64{}}
	for _, run := range r.runs {
		s.TotalRuns++
		s.ByStatus[run.Status]++
		s.TotalFetched += int64(run.TotalFetched)
		s.New += int64(run.Statistics.New)
		s.Updated += int64(run.Statistics.Updated)
		s.Failed += int64(run.Statistics.Failed)
	}
	return s, nil
}

func (r *memRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, run := range r.runs {
		if run.CreatedAt.Before(cutoff) {
			delete(r.runs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memRunRepo) get(id string) importrun.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

// memStore keys records by (sourceId, source name) like the real stores.
type memStore struct {
	mu      sync.Mutex
	records map[string]job.Record
	errFor  map[string]error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]job.Record{}, errFor: map[string]error{}}
}

func (s *memStore) Upsert(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.errFor[draft.SourceID]; ok {
		return job.UpsertResult{}, err
	}

	key := draft.SourceID + "|" + draft.Source.Name
	now := time.Now()
	rec, exists := s.records[key]
	if !exists {
		rec = job.Record{ID: uuid.NewString(), Status: job.StatusActive, CreatedAt: now}
	}
	rec.Draft = draft
	rec.LastImportID = importRunID
	rec.ImportCount++
	rec.UpdatedAt = now
	s.records[key] = rec

	return job.UpsertResult{Record: rec, IsNew: !exists}, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakeReader struct {
	drafts []job.Draft
	err    error
}

func (f *fakeReader) Read(ctx context.Context, locator string) ([]job.Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.drafts, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []importrun.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event importrun.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) named(name string) []importrun.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []importrun.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeProducer struct {
	id       string
	err      error
	payloads []queue.ImportPayload
}

func (f *fakeProducer) Enqueue(ctx context.Context, payload queue.ImportPayload, opts queue.EnqueueOptions) (string, error) {
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeConsumer struct {
	mu            sync.Mutex
	progress      []int
	completed     []string
	requeued      []string
	requeueDelay  time.Duration
	failed        []string
	failReason    string
	leaseExtended int
	leases        []queue.Lease
	// leaseLost makes every finishing call report the entry was reclaimed.
	leaseLost bool
}

func (f *fakeConsumer) Claim(ctx context.Context) (*queue.Entry, error) { return nil, nil }

func (f *fakeConsumer) ExtendLease(ctx context.Context, lease queue.Lease) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaseExtended++
	return nil
}

func (f *fakeConsumer) UpdateProgress(ctx context.Context, lease queue.Lease, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progress)
	return nil
}

func (f *fakeConsumer) Complete(ctx context.Context, lease queue.Lease) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leases = append(f.leases, lease)
	if f.leaseLost {
		return queue.ErrLeaseLost
	}
	f.completed = append(f.completed, lease.EntryID)
	return nil
}

func (f *fakeConsumer) Requeue(ctx context.Context, lease queue.Lease, reason string, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leases = append(f.leases, lease)
	if f.leaseLost {
		return queue.ErrLeaseLost
	}
	f.requeued = append(f.requeued, lease.EntryID)
	f.requeueDelay = delay
	f.failReason = reason
	return nil
}

func (f *fakeConsumer) Fail(ctx context.Context, lease queue.Lease, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leases = append(f.leases, lease)
	if f.leaseLost {
		return queue.ErrLeaseLost
	}
	f.failed = append(f.failed, lease.EntryID)
	f.failReason = reason
	return nil
}

func (f *fakeConsumer) PromoteDelayed(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeConsumer) RecoverStalled(ctx context.Context) (int, error) { return 0, nil }

func validDraft(sourceID, title string) job.Draft {
	return job.Draft{
		SourceID: sourceID,
		Title:    title,
		Company:  "Acme",
		JobType:  job.TypeFullTime,
		Source:   job.Source{Name: "jobs.example.com", URL: "https://jobs.example.com/feed"},
	}
}
