package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

const DefaultKafkaTopic = "job-import-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher appends events to a topic keyed by import run id, so the
// events of one run stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaWriter builds an async writer; delivery failures surface through
// the completion callback.
func NewKafkaWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("deliver events to kafka", "topic", topic, "messages", len(messages), "err", err)
			}
		},
	}
}

func NewKafkaPublisher(writer messageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event importrun.Event) {
	payload, err := Encode(event)
	if err != nil {
		p.logger.Warn("encode event for kafka", "event", event.EventName(), "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.RunID()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.EventName())},
		},
		Time: time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("publish event to kafka", "event", event.EventName(), "import_run_id", event.RunID(), "err", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
