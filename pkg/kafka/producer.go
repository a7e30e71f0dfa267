package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/resilience"
)

// HeaderEventType names the message header carrying Event.Type.
const HeaderEventType = "event-type"

// Event is the unit of data published to Kafka. Key is used for partition
// hashing, Type travels as a header, and Value is JSON-serialised.
type Event struct {
	Key   string
	Type  string
	Value any
}

type Producer struct {
	writer *kafka.Writer
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            1,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		retry:  resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes a single event synchronously, retrying transient broker
// errors with backoff.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in a single write call.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	err := resilience.Retry(ctx, "kafka publish", p.retry, func() error {
		return p.writer.WriteMessages(ctx, messages...)
	})
	if err != nil {
		p.logger.Error("failed to publish", "count", len(messages), "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("published", "count", len(messages))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling event value: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	}
	if event.Type != "" {
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(event.Type)}}
	}
	return msg, nil
}
