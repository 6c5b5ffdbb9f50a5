package domain

import (
	"fmt"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// OrderID identifies an order. Input is trimmed; ids that trim to empty are
// rejected.
type OrderID string

func NewOrderID(raw string) (OrderID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("order id must not be empty")
	}
	return OrderID(id), nil
}

func (id OrderID) String() string { return string(id) }

// ProductID identifies a catalog product. Same trimming rules as OrderID.
type ProductID string

func NewProductID(raw string) (ProductID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("product id must not be empty")
	}
	return ProductID(id), nil
}

func (id ProductID) String() string { return string(id) }

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateOrderID produces "ORD-<base36 unix millis>-<7 random base36>".
// The timestamp keeps generated ids roughly sortable; the suffix breaks
// same-millisecond ties.
func GenerateOrderID() OrderID {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	var suffix [7]byte
	for i := range suffix {
		suffix[i] = base36[mrand.IntN(len(base36))]
	}
	return OrderID("ORD-" + ts + "-" + string(suffix[:]))
}
