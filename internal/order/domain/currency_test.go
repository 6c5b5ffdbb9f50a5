package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    domain.Currency
		wantErr bool
	}{
		{name: "upper case", code: "USD", want: domain.USD},
		{name: "lower case normalized", code: "eur", want: domain.EUR},
		{name: "mixed case normalized", code: "gBp", want: domain.GBP},
		{name: "jpy", code: "JPY", want: domain.JPY},
		{name: "latam codes", code: "CLP", want: domain.CLP},
		{name: "leading whitespace", code: " USD", wantErr: true},
		{name: "trailing whitespace", code: "USD ", wantErr: true},
		{name: "unknown code", code: "XYZ", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseCurrency(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	assert.Equal(t, "$", domain.USD.Symbol())
	assert.Equal(t, "€", domain.EUR.Symbol())
	assert.Equal(t, "£", domain.GBP.Symbol())
	assert.Equal(t, "¥", domain.JPY.Symbol())
	assert.Equal(t, "$", domain.MXN.Symbol())
	assert.Equal(t, "US Dollar", domain.USD.Name())
	assert.Equal(t, "Argentine Peso", domain.ARS.Name())
}
