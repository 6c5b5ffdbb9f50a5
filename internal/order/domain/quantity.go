package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Quantity is a strictly positive item count.
type Quantity struct {
	value int
}

func NewQuantity(n int) (Quantity, error) {
	if n <= 0 {
		return Quantity{}, fmt.Errorf("quantity must be positive, got %d", n)
	}
	return Quantity{value: n}, nil
}

// QuantityFromNumber accepts numeric input from decoded JSON. Non-finite and
// non-integral values are rejected before the positivity check.
func QuantityFromNumber(n float64) (Quantity, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Quantity{}, fmt.Errorf("quantity must be finite, got %v", n)
	}
	if n != math.Trunc(n) {
		return Quantity{}, fmt.Errorf("quantity must be a whole number, got %v", n)
	}
	return NewQuantity(int(n))
}

func (q Quantity) Value() int { return q.value }

func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

func (q Quantity) String() string { return strconv.Itoa(q.value) }
