package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultPublishTimeout bounds one Publish call when no timeout is configured.
const DefaultPublishTimeout = 500 * time.Millisecond

type kafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafka publishes JSON events to topic on the given brokers. Each Publish
// gives up after timeout, so an unreachable broker delays a request by at
// most that much.
func NewKafka(brokers []string, topic string, timeout time.Duration, logger zerolog.Logger) Publisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		// one event per request: flush immediately instead of waiting for a batch
		BatchSize:       1,
		BatchTimeout:    5 * time.Millisecond,
		MaxAttempts:     2,
		WriteBackoffMin: 10 * time.Millisecond,
		WriteBackoffMax: 50 * time.Millisecond,
		ReadTimeout:     timeout,
		WriteTimeout:    timeout,
	}
	return newKafkaPublisher(w, topic, timeout, logger)
}

func newKafkaPublisher(w messageWriter, topic string, timeout time.Duration, logger zerolog.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		writer:  w,
		topic:   topic,
		timeout: timeout,
		logger:  logger.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// Publish writes evt and waits for the broker ack, up to the publisher timeout.
// The request context's cancellation is ignored: the change is already committed.
func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.Key()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", evt.Type, err)
	}
	p.logger.Debug().Str("type", evt.Type).Str("key", evt.Key()).Msg("event published")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
