package memory

import (
	"context"
	"log/slog"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

// NoopSink records published events in memory. It sleeps 5-25ms per call to
// keep dev-mode timing honest about a real broker round-trip. No persistence:
// events are lost on restart, which the in-memory configuration accepts.
type NoopSink struct {
	log  *slog.Logger
	echo bool

	mu     sync.Mutex
	events []domain.Event
}

// NewNoopSink builds the sink. With echo set, every accepted event is logged
// at info level so dev runs show the event flow.
func NewNoopSink(log *slog.Logger, echo bool) *NoopSink {
	return &NoopSink{log: log, echo: echo}
}

func (s *NoopSink) PublishAll(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	delay := time.Duration(5+mrand.IntN(21)) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()

	if s.echo {
		for _, e := range events {
			s.log.Info("event published",
				"event_type", e.EventType(),
				"event_name", e.EventName(),
				"data", e.Data(),
			)
		}
	}
	return nil
}

// Recorded returns a copy of every event accepted so far.
func (s *NoopSink) Recorded() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventsOfType filters recorded events by their storage type tag.
func (s *NoopSink) EventsOfType(eventType string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
