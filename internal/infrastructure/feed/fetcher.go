package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/feed"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; JobImporter/1.0)"
	acceptHeader     = "application/rss+xml, application/xml, text/xml"
	maxBodyBytes     = 32 << 20
)

type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher loads raw feed bodies over HTTP or from a LocalSource.
type Fetcher struct {
	client    *http.Client
	local     *LocalSource
	userAgent string
}

func NewFetcher(local *LocalSource, cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if local == nil {
		local = NewLocalSource("")
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		local:     local,
		userAgent: cfg.UserAgent,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if isLocal(locator) {
		return f.fetchLocal(ctx, locator)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &domain.FetchError{Locator: locator, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.FetchError{Locator: locator, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{Locator: locator, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (f *Fetcher) fetchLocal(ctx context.Context, locator string) ([]byte, error) {
	reader, err := f.local.Open(ctx, locator)
	if err != nil {
		return nil, &domain.FetchError{Locator: locator, Err: err}
	}
	defer reader.Close()

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{Locator: locator, Err: fmt.Errorf("read file: %w", err)}
	}
	return body, nil
}
