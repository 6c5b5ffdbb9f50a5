package idempotency

import (
	"context"
	"log/slog"

	"github.com/outboxlab/orderflow/pkg/outbox"
)

// Dedup wraps a delivery sink and skips event ids already marked delivered.
// Marking happens after the inner delivery succeeds, so a crash in between
// re-delivers rather than drops; the check itself fails open for the same
// reason.
type Dedup struct {
	inner outbox.Sink
	store *Store
	log   *slog.Logger
}

func WrapSink(inner outbox.Sink, store *Store, log *slog.Logger) *Dedup {
	return &Dedup{inner: inner, store: store, log: log}
}

func (d *Dedup) Deliver(ctx context.Context, msg outbox.Message) error {
	key := EventKey(msg.ID)

	seen, err := d.store.IsMarked(ctx, key)
	if err != nil {
		d.log.Warn("idempotency check failed", "event_id", msg.ID, "err", err)
	} else if seen {
		d.log.Info("duplicate event skipped", "event_id", msg.ID, "event_type", msg.EventType)
		return nil
	}

	if err := d.inner.Deliver(ctx, msg); err != nil {
		return err
	}

	if err := d.store.Mark(ctx, key); err != nil {
		d.log.Warn("idempotency mark failed", "event_id", msg.ID, "err", err)
	}
	return nil
}
