package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the slice of pgx shared by *pgxpool.Pool and pgx.Tx. Callers
// enqueue inside their own transaction or straight against the pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Event is what Publish can serialize into an outbox row. Domain event
// types satisfy it structurally.
type Event interface {
	EventType() string
	AggregateType() string
	AggregateID() string
	OccurredAt() time.Time
	Data() map[string]any
}

// envelope is the persisted payload shape.
type envelope struct {
	AggregateID string         `json:"aggregateId"`
	OccurredAt  string         `json:"occurredAt"`
	Data        map[string]any `json:"data"`
}

const insertMessage = `
INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, now())`

// Publish serializes one event and inserts its outbox row. Run against a
// transaction, the row commits or rolls back with the caller's other writes.
func Publish(ctx context.Context, db Execer, event Event) error {
	payload, err := json.Marshal(envelope{
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC().Format(time.RFC3339Nano),
		Data:        event.Data(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}
	if _, err := db.Exec(ctx, insertMessage,
		event.AggregateType(), event.AggregateID(), event.EventType(), payload,
	); err != nil {
		return fmt.Errorf("insert outbox row for %s: %w", event.EventType(), err)
	}
	return nil
}

// PublishAll inserts events in order, stopping at the first failure.
func PublishAll(ctx context.Context, db Execer, events []Event) error {
	for _, event := range events {
		if err := Publish(ctx, db, event); err != nil {
			return err
		}
	}
	return nil
}
