package application

import (
	"context"
	"errors"
	"time"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

// ErrOrderNotFound is the repository's miss signal for FindByID.
var ErrOrderNotFound = errors.New("order not found")

// ErrPriceNotFound is the catalog's miss signal; lookup failures of any
// other kind are returned as-is.
var ErrPriceNotFound = errors.New("price not found")

// OrderRepository persists and loads order aggregates. Save must write the
// aggregate state atomically; the postgres implementation also drains the
// aggregate's pending events into the outbox inside the same transaction.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	Exists(ctx context.Context, id domain.OrderID) (bool, error)
}

// EventSink receives whatever events remain on the aggregate after a
// successful save.
type EventSink interface {
	PublishAll(ctx context.Context, events []domain.Event) error
}

// PriceCatalog resolves unit prices for products.
type PriceCatalog interface {
	PriceFor(ctx context.Context, id domain.ProductID) (domain.Money, error)
}

// Clock abstracts time so use cases stay deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
