// Package kafka delivers outbox messages to a Kafka topic.
package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/outboxlab/orderflow/pkg/outbox"
	"github.com/outboxlab/orderflow/pkg/tracing"
)

// Sink publishes claimed outbox messages. Messages are keyed by aggregate
// id, so per-key ordering follows claim order.
type Sink struct {
	log    *slog.Logger
	writer *kafka.Writer
	topic  string
}

func NewSink(log *slog.Logger, brokers []string, topic string) *Sink {
	return &Sink{
		log: log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		topic: topic,
	}
}

func (s *Sink) Deliver(ctx context.Context, msg outbox.Message) error {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(msg.ID.String())},
		{Key: "event_type", Value: []byte(msg.EventType)},
		{Key: "aggregate_type", Value: []byte(msg.AggregateType)},
	}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	out := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(msg.AggregateID),
		Value:   msg.Payload,
		Headers: headers,
	}
	if err := s.writer.WriteMessages(ctx, out); err != nil {
		s.log.Error("kafka deliver failed", "event_id", msg.ID, "err", err)
		return err
	}
	s.log.Debug("kafka delivered", "event_id", msg.ID, "event_type", msg.EventType)
	return nil
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
