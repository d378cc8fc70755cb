package notify

import (
	"context"
	"log/slog"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

// LogPublisher writes events to the structured log. It is always part of the
// fan-out so events are visible without any broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event importrun.Event) {
	attrs := []any{"event", event.EventName(), "import_run_id", event.RunID()}

	switch e := event.(type) {
	case importrun.ProgressEvent:
		p.logger.DebugContext(ctx, "import progress", append(attrs, "progress", e.Progress, "processed", e.Processed, "total", e.Total)...)
	case importrun.CompleteEvent:
		p.logger.InfoContext(ctx, "import complete", append(attrs,
			"status", e.Status,
			"total", e.Statistics.Total,
			"new", e.Statistics.New,
			"updated", e.Statistics.Updated,
			"failed", e.Statistics.Failed,
		)...)
	case importrun.FailedEvent:
		p.logger.WarnContext(ctx, "import failed", append(attrs, "err", e.Error)...)
	default:
		p.logger.InfoContext(ctx, "import event", attrs...)
	}
}
