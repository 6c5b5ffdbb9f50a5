package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in a single currency. The zero value is
// meaningless; construct through NewMoney or MoneyFromString.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney rejects negative and non-finite amounts. Zero is legal here; the
// order aggregate enforces its own floor on unit prices.
func NewMoney(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("money amount must be finite, got %v", amount)
	}
	if amount < 0 {
		return Money{}, fmt.Errorf("money amount must not be negative, got %v", amount)
	}
	return Money{amount: decimal.NewFromFloat(amount), currency: currency}, nil
}

// MoneyFromString rebuilds an amount from its decimal string form, as stored
// in NUMERIC columns.
func MoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse money amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("money amount must not be negative, got %s", amount)
	}
	return Money{amount: d, currency: currency}, nil
}

// ZeroMoney is the zero amount in the given currency.
func ZeroMoney(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency { return m.currency }

func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add fails when the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add %s to %s", other.currency, m.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Multiply scales the amount. Negative and non-finite factors are rejected.
func (m Money) Multiply(factor float64) (Money, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return Money{}, fmt.Errorf("multiply factor must be finite, got %v", factor)
	}
	if factor < 0 {
		return Money{}, fmt.Errorf("multiply factor must not be negative, got %v", factor)
	}
	return Money{amount: m.amount.Mul(decimal.NewFromFloat(factor)), currency: m.currency}, nil
}

func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the symbol followed by the amount with two decimal places,
// e.g. "$1299.99".
func (m Money) String() string {
	return m.currency.Symbol() + m.amount.StringFixed(2)
}

// MarshalJSON renders {"amount":<number>,"currency":"<code>"} with the
// amount as a bare JSON number, not a string.
func (m Money) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, `{"amount":%s,"currency":%q}`, m.amount.String(), m.currency), nil
}
