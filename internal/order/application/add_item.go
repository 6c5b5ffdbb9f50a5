package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

// AddItemInput is the raw request payload for adding an item. Quantity stays
// a float64 until validation so fractional JSON input fails loudly instead
// of being truncated by decoding.
type AddItemInput struct {
	OrderID   string
	ProductID string
	Quantity  float64
}

// AddItemToOrder loads an aggregate, prices the product and applies the
// domain's merge-or-append rules.
type AddItemToOrder struct {
	repo    OrderRepository
	sink    EventSink
	catalog PriceCatalog
	log     *slog.Logger
}

func NewAddItemToOrder(repo OrderRepository, sink EventSink, catalog PriceCatalog, log *slog.Logger) *AddItemToOrder {
	return &AddItemToOrder{repo: repo, sink: sink, catalog: catalog, log: log}
}

// Execute validates input in field order (orderId, productId, quantity),
// then loads, prices, mutates and saves.
func (uc *AddItemToOrder) Execute(ctx context.Context, input AddItemInput) (*domain.Order, error) {
	orderID, err := domain.NewOrderID(input.OrderID)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Field: "orderId"}
	}
	productID, err := domain.NewProductID(input.ProductID)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Field: "productId"}
	}
	quantity, err := domain.QuantityFromNumber(input.Quantity)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Field: "quantity"}
	}

	order, err := uc.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, &NotFoundError{
				Resource: "Order",
				ID:       orderID.String(),
				Message:  fmt.Sprintf("order %s not found", orderID),
			}
		}
		return nil, &InfraError{Message: "loading order", Cause: err}
	}

	price, err := uc.catalog.PriceFor(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrPriceNotFound) {
			return nil, &NotFoundError{
				Resource: "Product",
				ID:       productID.String(),
				Message:  fmt.Sprintf("no price for product %s", productID),
			}
		}
		return nil, &InfraError{Message: "resolving product price", Cause: err}
	}

	if err := order.AddItem(productID, quantity, price); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if err := uc.repo.Save(ctx, order); err != nil {
		return nil, &InfraError{Message: "saving order", Cause: err}
	}

	publishDrained(ctx, uc.sink, uc.log, order)

	return order, nil
}
