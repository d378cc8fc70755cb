package notify

import (
	"context"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

// Fanout publishes each event to every configured publisher in order.
type Fanout struct {
	publishers []importrun.Publisher
}

func NewFanout(publishers ...importrun.Publisher) *Fanout {
	kept := make([]importrun.Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Fanout{publishers: kept}
}

func (f *Fanout) Publish(ctx context.Context, event importrun.Event) {
	for _, p := range f.publishers {
		p.Publish(ctx, event)
	}
}

func (f *Fanout) Len() int {
	return len(f.publishers)
}
