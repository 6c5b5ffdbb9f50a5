package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliverFunc hands one claimed message to the downstream sink.
type DeliverFunc func(ctx context.Context, msg Message) error

// Store supplies claimable batches to a Dispatcher.
type Store interface {
	// ProcessBatch claims up to limit pending messages under row locks,
	// delivers them oldest-first and stamps them published, all in one
	// transaction. It reports how many rows it processed; a delivery or
	// storage failure rolls the whole claim back for a later retry.
	ProcessBatch(ctx context.Context, limit int, deliver DeliverFunc) (int, error)
	Stats(ctx context.Context) (Stats, error)
	CleanupPublished(ctx context.Context, olderThanDays int) (int64, error)
}

// PgStore runs the claim protocol against PostgreSQL. SKIP LOCKED makes
// concurrent claimers partition the backlog instead of blocking on it.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const (
	claimBatch = `
SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
FROM outbox
WHERE published_at IS NULL
ORDER BY created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED`

	stampPublished = `UPDATE outbox SET published_at = now() WHERE id = ANY($1)`

	statsQuery = `
SELECT
    COUNT(*) FILTER (WHERE published_at IS NULL),
    COUNT(*) FILTER (WHERE published_at IS NOT NULL),
    MIN(created_at) FILTER (WHERE published_at IS NULL)
FROM outbox`

	deletePublished = `
DELETE FROM outbox
WHERE published_at IS NOT NULL
  AND published_at < now() - make_interval(days => $1)`
)

func (s *PgStore) ProcessBatch(ctx context.Context, limit int, deliver DeliverFunc) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, claimBatch, limit)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, tx.Commit(ctx)
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	for _, msg := range msgs {
		if err := deliver(ctx, msg); err != nil {
			return 0, fmt.Errorf("deliver %s %s: %w", msg.EventType, msg.ID, err)
		}
		ids = append(ids, msg.ID)
	}

	if _, err := tx.Exec(ctx, stampPublished, ids); err != nil {
		return 0, fmt.Errorf("stamp published: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	return len(msgs), nil
}

// scanMessages drains and closes rows before the caller issues further
// statements on the same transaction.
func scanMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()
	var msgs []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID, &msg.AggregateType, &msg.AggregateID,
			&msg.EventType, &msg.Payload, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read claim: %w", err)
	}
	return msgs, nil
}

func (s *PgStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.pool.QueryRow(ctx, statsQuery).Scan(
		&stats.PendingEvents, &stats.PublishedEvents, &stats.OldestPendingEvent,
	); err != nil {
		return Stats{}, fmt.Errorf("outbox stats: %w", err)
	}
	return stats, nil
}

func (s *PgStore) CleanupPublished(ctx context.Context, olderThanDays int) (int64, error) {
	tag, err := s.pool.Exec(ctx, deletePublished, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("cleanup published: %w", err)
	}
	return tag.RowsAffected(), nil
}
