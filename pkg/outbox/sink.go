package outbox

import (
	"context"
	"log/slog"
)

// Sink delivers claimed messages downstream. Implementations must tolerate
// duplicate ids: a crash between delivery and commit re-delivers the batch.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogSink writes deliveries to the log. It stands in for a broker during
// development and in wirings that only need the outbox as an audit trail.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	s.log.Info("outbox event",
		"event_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"payload", string(msg.Payload),
	)
	return nil
}
