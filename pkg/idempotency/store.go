// Package idempotency suppresses duplicate outbox deliveries using Redis
// marks. The outbox contract is at-least-once; wrapping a sink with Dedup
// makes the stream effectively-once for downstream consumers as long as the
// marks outlive the redelivery window.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store tracks delivered event ids with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// EventKey is the mark key for one outbox row.
func EventKey(id uuid.UUID) string {
	return fmt.Sprintf("outbox:event:%s", id)
}

// IsMarked reports whether key was already marked delivered.
func (s *Store) IsMarked(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records key as delivered for the store's TTL. SetNX keeps the TTL of
// an existing mark instead of restarting it.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.SetNX(ctx, key, "1", s.ttl).Err()
}
