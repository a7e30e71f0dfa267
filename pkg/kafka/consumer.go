// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Events travel as JSON; consumers dispatch each
// message to a MessageHandler.
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

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler, committing each message once it has been handled.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

const (
	fetchBackoffMin = 100 * time.Millisecond
	fetchBackoffMax = 5 * time.Second
)

// NewConsumer joins group on topic. Consumers in different groups each see
// every message, which is how every catalog replica hears every event.
func NewConsumer(cfg config.KafkaConfig, topic, group string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

// Start fetches and handles messages until ctx is cancelled. A message
// whose handler still fails after a few attempts is logged and committed,
// so one bad event cannot stall the partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	fetchBackoff := fetchBackoffMin
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("fetch failed", "error", err, "backoff", fetchBackoff)
			select {
			case <-time.After(fetchBackoff):
			case <-ctx.Done():
				continue
			}
			fetchBackoff = min(2*fetchBackoff, fetchBackoffMax)
			continue
		}
		fetchBackoff = fetchBackoffMin

		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		log.Debug("message received", "key", string(msg.Key), "bytes", len(msg.Value))
		err = resilience.Retry(ctx, "handle kafka message", c.retry, func() error {
			return c.handler(ctx, msg.Key, msg.Value)
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error("dropping message after failed handling", "error", err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("commit failed", "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// JSONHandler adapts a typed callback into a MessageHandler. Undecodable
// messages fail permanently and are not retried.
func JSONHandler[T any](fn func(ctx context.Context, event T) error) MessageHandler {
	return func(ctx context.Context, _ []byte, value []byte) error {
		event, err := DecodeJSON[T](value)
		if err != nil {
			return resilience.Permanent(err)
		}
		return fn(ctx, event)
	}
}
