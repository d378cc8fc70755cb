package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

// Collectors holds every collector of the importer. It satisfies the run
// recorder and the feed fetch observer.
type Collectors struct {
	gatherer prometheus.Gatherer

	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RecordsTotal     *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	FetchErrorsTotal *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg *prometheus.Registry) *Collectors {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Collectors{
		gatherer: gatherer,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobimport_runs_total",
				Help: "Import runs that reached a final status",
			},
			[]string{"status"}, // completed, partial, failed
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobimport_run_duration_seconds",
				Help:    "Wall time of an import run from start to final status",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4m
			},
			[]string{"status"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobimport_records_total",
				Help: "Feed records processed by outcome",
			},
			[]string{"outcome"}, // new, updated, failed
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobimport_feed_fetch_duration_seconds",
				Help:    "Time spent fetching and parsing one feed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		FetchErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobimport_feed_fetch_errors_total",
				Help: "Feed fetches that failed",
			},
			[]string{"source"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobimport_queue_entries",
				Help: "Queue entries by state",
			},
			[]string{"state"},
		),
	}
}

func (c *Collectors) RunFinished(status importrun.Status, elapsed time.Duration) {
	c.RunsTotal.WithLabelValues(string(status)).Inc()
	c.RunDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (c *Collectors) RecordsMerged(stats importrun.Statistics) {
	c.RecordsTotal.WithLabelValues("new").Add(float64(stats.New))
	c.RecordsTotal.WithLabelValues("updated").Add(float64(stats.Updated))
	c.RecordsTotal.WithLabelValues("failed").Add(float64(stats.Failed))
}

func (c *Collectors) ObserveFetch(source string, elapsed time.Duration, err error) {
	c.FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		c.FetchErrorsTotal.WithLabelValues(source).Inc()
	}
}

func (c *Collectors) ObserveQueue(stats queue.Stats) {
	c.QueueDepth.WithLabelValues(string(queue.StateWaiting)).Set(float64(stats.Waiting))
	c.QueueDepth.WithLabelValues(string(queue.StateActive)).Set(float64(stats.Active))
	c.QueueDepth.WithLabelValues(string(queue.StateDelayed)).Set(float64(stats.Delayed))
	c.QueueDepth.WithLabelValues(string(queue.StateCompleted)).Set(float64(stats.Completed))
	c.QueueDepth.WithLabelValues(string(queue.StateFailed)).Set(float64(stats.Failed))
}

// Handler serves the registry the collectors live on.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

type statsSource interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// SampleQueue copies queue depth into the gauges every interval until ctx
// is done.
func (c *Collectors) SampleQueue(ctx context.Context, src statsSource, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats, err := src.Stats(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("sample queue depth", "err", err)
		} else {
			c.ObserveQueue(stats)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
