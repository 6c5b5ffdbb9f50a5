package domain

import "time"

// Event is a domain event recorded by the order aggregate. Every variant
// carries its type tags explicitly; nothing is derived by reflection.
type Event interface {
	// EventType is the storage type tag, e.g. "OrderCreated".
	EventType() string
	// EventName is the stable dotted name, e.g. "order.created".
	EventName() string
	// AggregateType names the owning aggregate kind.
	AggregateType() string
	// AggregateID returns the event name, not the order id. Consumers that
	// need an order id read it from Data.
	AggregateID() string
	OccurredAt() time.Time
	// Data is the event-specific payload section.
	Data() map[string]any
}

type baseEvent struct {
	occurredAt time.Time
}

func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// OrderCreated records that a fresh aggregate came into existence.
type OrderCreated struct {
	baseEvent
	OrderID OrderID
}

func (OrderCreated) EventType() string { return "OrderCreated" }

func (OrderCreated) EventName() string { return "order.created" }

func (OrderCreated) AggregateType() string { return "Order" }

func (e OrderCreated) AggregateID() string { return e.EventName() }

func (e OrderCreated) Data() map[string]any {
	return map[string]any{"orderId": e.OrderID.String()}
}

// OrderItemAdded records a new line appended to the order.
type OrderItemAdded struct {
	baseEvent
	OrderID   OrderID
	ProductID ProductID
	Quantity  Quantity
	UnitPrice Money
}

func (OrderItemAdded) EventType() string { return "OrderItemAdded" }

func (OrderItemAdded) EventName() string { return "order.item_added" }

func (OrderItemAdded) AggregateType() string { return "Order" }

func (e OrderItemAdded) AggregateID() string { return e.EventName() }

func (e OrderItemAdded) Data() map[string]any {
	return map[string]any{
		"orderId":   e.OrderID.String(),
		"productId": e.ProductID.String(),
		"quantity":  e.Quantity.Value(),
		"unitPrice": e.UnitPrice,
	}
}

// OrderItemQuantityIncreased records a merge into an existing line.
type OrderItemQuantityIncreased struct {
	baseEvent
	OrderID          OrderID
	ProductID        ProductID
	PreviousQuantity Quantity
	NewQuantity      Quantity
}

func (OrderItemQuantityIncreased) EventType() string { return "OrderItemQuantityIncreased" }

func (OrderItemQuantityIncreased) EventName() string { return "order.item_quantity_increased" }

func (OrderItemQuantityIncreased) AggregateType() string { return "Order" }

func (e OrderItemQuantityIncreased) AggregateID() string { return e.EventName() }

func (e OrderItemQuantityIncreased) Data() map[string]any {
	return map[string]any{
		"orderId":          e.OrderID.String(),
		"productId":        e.ProductID.String(),
		"previousQuantity": e.PreviousQuantity.Value(),
		"newQuantity":      e.NewQuantity.Value(),
	}
}
