package postgres

import (
	"context"

	"github.com/outboxlab/orderflow/internal/order/domain"
	"github.com/outboxlab/orderflow/pkg/outbox"
)

// EventSink appends domain events to the outbox table. It binds to anything
// that can execute SQL: a transaction so the rows share a commit with the
// business data, or the pool for events published outside one. Repository.Save
// drains the aggregate inside its own transaction, so a pool-bound sink only
// sees events still buffered after a save.
type EventSink struct {
	exec outbox.Execer
}

func NewEventSink(exec outbox.Execer) *EventSink {
	return &EventSink{exec: exec}
}

func (s *EventSink) PublishAll(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	converted := make([]outbox.Event, len(events))
	for i, e := range events {
		converted[i] = e
	}
	return outbox.PublishAll(ctx, s.exec, converted)
}
