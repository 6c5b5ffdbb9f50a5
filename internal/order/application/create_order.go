package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

// CreateOrderInput is the raw request payload for order creation.
type CreateOrderInput struct {
	OrderID string
}

// CreateOrder builds a fresh aggregate, persists it and hands any remaining
// drained events to the sink.
type CreateOrder struct {
	repo  OrderRepository
	sink  EventSink
	clock Clock
	log   *slog.Logger
}

func NewCreateOrder(repo OrderRepository, sink EventSink, clock Clock, log *slog.Logger) *CreateOrder {
	return &CreateOrder{repo: repo, sink: sink, clock: clock, log: log}
}

// Execute validates the optional caller-supplied id, rejects duplicates and
// persists the new aggregate. An absent id means "generate one"; an id that
// trims to empty is a validation failure, not a generation request.
func (uc *CreateOrder) Execute(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	var id domain.OrderID
	if input.OrderID == "" {
		id = domain.GenerateOrderID()
	} else {
		parsed, err := domain.NewOrderID(input.OrderID)
		if err != nil {
			return nil, &ValidationError{Message: err.Error(), Field: "orderId"}
		}
		id = parsed
	}

	exists, err := uc.repo.Exists(ctx, id)
	if err != nil {
		return nil, &InfraError{Message: "checking order existence", Cause: err}
	}
	if exists {
		return nil, &ConflictError{
			Message: fmt.Sprintf("order %s already exists", id),
			Reason:  "duplicate_order_id",
		}
	}

	order := domain.NewOrder(id, domain.WithClock(uc.clock.Now))

	if err := uc.repo.Save(ctx, order); err != nil {
		return nil, &InfraError{Message: "saving order", Cause: err}
	}

	publishDrained(ctx, uc.sink, uc.log, order)

	return order, nil
}

// publishDrained forwards leftover events to the sink. Sink failures are
// logged and swallowed: the save already committed, and in the persistent
// wiring the repository drained the buffer into the outbox before this runs.
func publishDrained(ctx context.Context, sink EventSink, log *slog.Logger, order *domain.Order) {
	events := order.PullEvents()
	if len(events) == 0 {
		return
	}
	if err := sink.PublishAll(ctx, events); err != nil {
		log.Error("event sink publish failed",
			"order_id", order.ID().String(),
			"events", len(events),
			"err", err,
		)
	}
}
