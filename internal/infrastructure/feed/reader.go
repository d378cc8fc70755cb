package feed

import (
	"context"
	"log/slog"
	"time"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/feed"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

// FetchObserver receives the outcome of every fetch.
type FetchObserver interface {
	ObserveFetch(source string, elapsed time.Duration, err error)
}

// Reader fetches one feed and normalizes every entry into a draft.
type Reader struct {
	fetcher  *Fetcher
	observer FetchObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewReader(fetcher *Fetcher, observer FetchObserver, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		fetcher:  fetcher,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reader) Read(ctx context.Context, locator string) ([]job.Draft, error) {
	sourceName := SourceName(locator)

	started := time.Now()
	body, err := r.fetcher.Fetch(ctx, locator)
	if r.observer != nil {
		r.observer.ObserveFetch(sourceName, time.Since(started), err)
	}
	if err != nil {
		return nil, err
	}

	entries, err := Parse(body)
	if err != nil {
		return nil, &domain.ParseError{Locator: locator, Err: err}
	}

	source := job.Source{Name: sourceName, URL: locator}
	now := r.now()

	drafts := make([]job.Draft, 0, len(entries))
	for _, entry := range entries {
		drafts = append(drafts, Normalize(entry, source, now))
	}

	r.logger.Debug("feed normalized",
		"source", sourceName,
		"entries", len(drafts),
		"bytes", len(body),
	)
	return drafts, nil
}
