package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

const (
	DefaultRedisChannel = "job-import:events"
	publishTimeout      = 2 * time.Second
)

// RedisPublisher sends events over Redis pub/sub so every API replica can
// relay them to its own websocket clients.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	logger  *slog.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event importrun.Event) {
	payload, err := Encode(event)
	if err != nil {
		p.logger.Warn("encode event for redis", "event", event.EventName(), "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("publish event to redis",
			"event", event.EventName(),
			"import_run_id", event.RunID(),
			"channel", p.channel,
			"err", err,
		)
	}
}

// Relay subscribes to the channel and hands every raw message to deliver
// until ctx is done.
func (p *RedisPublisher) Relay(ctx context.Context, deliver func([]byte)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(msg.Payload))
		}
	}
}
