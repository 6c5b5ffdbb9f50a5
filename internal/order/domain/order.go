package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrZeroUnitPrice rejects free items; every line must cost something.
	ErrZeroUnitPrice = errors.New("unit price must be greater than zero")

	// ErrOrderEmpty is returned by Total on an order with no items.
	ErrOrderEmpty = errors.New("order has no items")

	// ErrMixedCurrencies is returned by Total when line subtotals span more
	// than one currency.
	ErrMixedCurrencies = errors.New("order totals span multiple currencies")
)

// CurrencyMismatchError reports an attempt to mix currencies on one order.
type CurrencyMismatchError struct {
	Expected Currency
	Got      Currency
}

func (e CurrencyMismatchError) Error() string {
	return fmt.Sprintf("order accepts %s items only, got %s", e.Expected, e.Got)
}

// Order is the aggregate root. Lines keep insertion order and merge by
// product id; every mutation records a domain event in the pending buffer
// until PullEvents drains it.
type Order struct {
	id        OrderID
	createdAt time.Time
	items     []OrderItem
	events    []Event
	now       func() time.Time
}

// OrderOption adjusts aggregate construction.
type OrderOption func(*Order)

// WithClock replaces the time source used to stamp creation and events.
func WithClock(now func() time.Time) OrderOption {
	return func(o *Order) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrder creates a fresh aggregate and records OrderCreated.
func NewOrder(id OrderID, opts ...OrderOption) *Order {
	o := &Order{id: id, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	o.createdAt = o.now().UTC()
	o.record(OrderCreated{baseEvent: baseEvent{occurredAt: o.createdAt}, OrderID: id})
	return o
}

// Reconstitute rebuilds an aggregate from stored state without recording
// any events.
func Reconstitute(id OrderID, createdAt time.Time, items []OrderItem, opts ...OrderOption) *Order {
	o := &Order{
		id:        id,
		createdAt: createdAt.UTC(),
		items:     append([]OrderItem(nil), items...),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Order) ID() OrderID { return o.id }

func (o *Order) CreatedAt() time.Time { return o.createdAt }

// Items returns the lines in insertion order.
func (o *Order) Items() []OrderItem {
	return append([]OrderItem(nil), o.items...)
}

func (o *Order) ItemCount() int { return len(o.items) }

// TotalQuantity sums line quantities across the order.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.items {
		total += item.Quantity().Value()
	}
	return total
}

func (o *Order) HasProduct(id ProductID) bool {
	for _, item := range o.items {
		if item.ProductID() == id {
			return true
		}
	}
	return false
}

// AddItem runs the checks in order: zero unit price, currency coherence
// against the first line, then merge-or-append. A merge keeps the existing
// line's unit price and records OrderItemQuantityIncreased; an append
// records OrderItemAdded.
func (o *Order) AddItem(productID ProductID, quantity Quantity, unitPrice Money) error {
	if unitPrice.IsZero() {
		return ErrZeroUnitPrice
	}
	if len(o.items) > 0 {
		if expected := o.items[0].UnitPrice().Currency(); unitPrice.Currency() != expected {
			return CurrencyMismatchError{Expected: expected, Got: unitPrice.Currency()}
		}
	}
	for idx, item := range o.items {
		if item.ProductID() != productID {
			continue
		}
		previous := item.Quantity()
		next := previous.Add(quantity)
		o.items[idx] = item.WithQuantity(next)
		o.record(OrderItemQuantityIncreased{
			baseEvent:        baseEvent{occurredAt: o.now().UTC()},
			OrderID:          o.id,
			ProductID:        productID,
			PreviousQuantity: previous,
			NewQuantity:      next,
		})
		return nil
	}
	o.items = append(o.items, NewOrderItem(productID, quantity, unitPrice))
	o.record(OrderItemAdded{
		baseEvent: baseEvent{occurredAt: o.now().UTC()},
		OrderID:   o.id,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return nil
}

// TotalsByCurrency sums line subtotals per currency. Lines whose subtotal
// cannot be computed are skipped.
func (o *Order) TotalsByCurrency() map[Currency]Money {
	totals := make(map[Currency]Money)
	for _, item := range o.items {
		sub, err := item.Subtotal()
		if err != nil {
			continue
		}
		existing, ok := totals[sub.Currency()]
		if !ok {
			totals[sub.Currency()] = sub
			continue
		}
		if summed, err := existing.Add(sub); err == nil {
			totals[sub.Currency()] = summed
		}
	}
	return totals
}

// Total is the single-currency order total. It fails on an empty order and
// on reconstituted state whose lines span currencies.
func (o *Order) Total() (Money, error) {
	if len(o.items) == 0 {
		return Money{}, ErrOrderEmpty
	}
	totals := o.TotalsByCurrency()
	if len(totals) != 1 {
		return Money{}, ErrMixedCurrencies
	}
	var total Money
	for _, t := range totals {
		total = t
	}
	return total, nil
}

// PullEvents drains the pending buffer: it returns the recorded events in
// order and leaves the buffer empty.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) record(e Event) { o.events = append(o.events, e) }
