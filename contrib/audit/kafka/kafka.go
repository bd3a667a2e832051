// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sweetpotato0/ai-triage/audit"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
)

// DefaultTopic receives decision events when Config.Topic is empty.
const DefaultTopic = "triage.decisions"

// Config holds the broker connection settings
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements audit.Publisher. Messages are keyed by ticket id so
// every event of a ticket lands on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

var _ audit.Publisher = (*Publisher)(nil)

// New creates a publisher writing to cfg.Topic.
func New(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.Topic), nil
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{
		writer: w,
		topic:  topic,
		logger: logging.WithComponent("audit.kafka"),
	}
}

// Publish sends all events in one write.
func (p *Publisher) Publish(ctx context.Context, events ...audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}
	p.logger.DebugContext(ctx, "published audit events", "topic", p.topic, "count", len(msgs))
	return nil
}

func encode(events []audit.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("kafka: encode event for %s: %w", e.TicketID, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(e.TicketID),
			Value: data,
			Time:  e.Timestamp,
		}
	}
	return msgs, nil
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
