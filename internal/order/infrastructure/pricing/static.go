// Package pricing implements the price-catalog port: a static table for
// development and a JSON client for a remote catalog service.
package pricing

import (
	"context"

	"github.com/outboxlab/orderflow/internal/order/application"
	"github.com/outboxlab/orderflow/internal/order/domain"
)

// StaticCatalog serves prices from a fixed table.
type StaticCatalog struct {
	prices map[domain.ProductID]domain.Money
}

func NewStaticCatalog(prices map[domain.ProductID]domain.Money) *StaticCatalog {
	return &StaticCatalog{prices: prices}
}

// DefaultCatalog is the development seed used when no pricing service is
// configured.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(map[domain.ProductID]domain.Money{
		"LAPTOP-001":   price(1299.99, domain.USD),
		"MOUSE-001":    price(29.99, domain.USD),
		"KEYBOARD-001": price(89.99, domain.USD),
		"MONITOR-001":  price(399.99, domain.USD),
		"DOCK-EU":      price(199.99, domain.EUR),
	})
}

func (c *StaticCatalog) PriceFor(_ context.Context, id domain.ProductID) (domain.Money, error) {
	m, ok := c.prices[id]
	if !ok {
		return domain.Money{}, application.ErrPriceNotFound
	}
	return m, nil
}

func price(amount float64, cur domain.Currency) domain.Money {
	m, err := domain.NewMoney(amount, cur)
	if err != nil {
		panic(err)
	}
	return m
}
