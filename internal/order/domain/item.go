package domain

import "fmt"

// OrderItem is one immutable order line: product, quantity, unit price.
// Mutation happens by replacing the line through WithQuantity.
type OrderItem struct {
	productID ProductID
	quantity  Quantity
	unitPrice Money
}

func NewOrderItem(productID ProductID, quantity Quantity, unitPrice Money) OrderItem {
	return OrderItem{productID: productID, quantity: quantity, unitPrice: unitPrice}
}

func (i OrderItem) ProductID() ProductID { return i.productID }

func (i OrderItem) Quantity() Quantity { return i.quantity }

func (i OrderItem) UnitPrice() Money { return i.unitPrice }

// WithQuantity returns a copy of the line holding the given quantity and the
// original unit price.
func (i OrderItem) WithQuantity(q Quantity) OrderItem {
	return OrderItem{productID: i.productID, quantity: q, unitPrice: i.unitPrice}
}

// Subtotal is unit price times quantity.
func (i OrderItem) Subtotal() (Money, error) {
	return i.unitPrice.Multiply(float64(i.quantity.Value()))
}

func (i OrderItem) String() string {
	sub, err := i.Subtotal()
	if err != nil {
		return fmt.Sprintf("%s x%s @ %s", i.productID, i.quantity, i.unitPrice)
	}
	return fmt.Sprintf("%s x%s @ %s = %s", i.productID, i.quantity, i.unitPrice, sub)
}
