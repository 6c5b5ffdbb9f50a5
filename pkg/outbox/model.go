package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Message is one outbox row: a serialized domain event awaiting delivery.
// A row with a nil PublishedAt is pending; dispatchers stamp PublishedAt
// after the downstream sink accepts the payload.
type Message struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Pending reports whether the row still awaits delivery.
func (m Message) Pending() bool { return m.PublishedAt == nil }

// Stats summarizes outbox backlog state.
type Stats struct {
	PendingEvents      int64
	PublishedEvents    int64
	OldestPendingEvent *time.Time
}
