package domain

import (
	"fmt"
	"strings"
)

// Currency is an ISO-4217 code from the closed set the service trades in.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	MXN Currency = "MXN"
	ARS Currency = "ARS"
	CLP Currency = "CLP"
)

type currencyInfo struct {
	symbol string
	name   string
}

var currencies = map[Currency]currencyInfo{
	USD: {symbol: "$", name: "US Dollar"},
	EUR: {symbol: "€", name: "Euro"},
	GBP: {symbol: "£", name: "British Pound"},
	JPY: {symbol: "¥", name: "Japanese Yen"},
	MXN: {symbol: "$", name: "Mexican Peso"},
	ARS: {symbol: "$", name: "Argentine Peso"},
	CLP: {symbol: "$", name: "Chilean Peso"},
}

// ParseCurrency normalizes code to upper case and checks it against the
// supported set. Surrounding whitespace is rejected, not trimmed.
func ParseCurrency(code string) (Currency, error) {
	if code != strings.TrimSpace(code) {
		return "", fmt.Errorf("currency %q has surrounding whitespace", code)
	}
	c := Currency(strings.ToUpper(code))
	if _, ok := currencies[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

func (c Currency) Symbol() string { return currencies[c].symbol }

func (c Currency) Name() string { return currencies[c].name }

func (c Currency) String() string { return string(c) }
