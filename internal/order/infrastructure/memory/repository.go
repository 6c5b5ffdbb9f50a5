// Package memory backs the order service with process-local storage. It is
// selected by USE_INMEMORY for development and handler tests; nothing here
// survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/outboxlab/orderflow/internal/order/application"
	"github.com/outboxlab/orderflow/internal/order/domain"
)

type snapshot struct {
	createdAt time.Time
	items     []domain.OrderItem
}

// Repository keeps order snapshots in a map. Events stay on the aggregate so
// the use case can drain them into its sink.
type Repository struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]snapshot
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[domain.OrderID]snapshot)}
}

func (r *Repository) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID()] = snapshot{
		createdAt: order.CreatedAt(),
		items:     order.Items(),
	}
	return nil
}

func (r *Repository) FindByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.orders[id]
	if !ok {
		return nil, application.ErrOrderNotFound
	}
	return domain.Reconstitute(id, snap.createdAt, snap.items), nil
}

func (r *Repository) Exists(_ context.Context, id domain.OrderID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.orders[id]
	return ok, nil
}

// Len reports how many orders are stored.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
