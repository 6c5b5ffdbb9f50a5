package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboxlab/orderflow/internal/order/domain"
)

func TestNewOrderID(t *testing.T) {
	id, err := domain.NewOrderID("  ORD-123  ")
	require.NoError(t, err)
	assert.Equal(t, "ORD-123", id.String())

	_, err = domain.NewOrderID("")
	require.Error(t, err)

	_, err = domain.NewOrderID("   ")
	require.Error(t, err)
}

func TestNewProductID(t *testing.T) {
	id, err := domain.NewProductID(" LAPTOP-001 ")
	require.NoError(t, err)
	assert.Equal(t, "LAPTOP-001", id.String())

	_, err = domain.NewProductID("\t\n")
	require.Error(t, err)
}

func TestGenerateOrderID(t *testing.T) {
	seen := make(map[domain.OrderID]struct{})
	for range 1000 {
		id := domain.GenerateOrderID()
		parts := strings.Split(id.String(), "-")
		require.Len(t, parts, 3)
		assert.Equal(t, "ORD", parts[0])
		assert.NotEmpty(t, parts[1])
		assert.Len(t, parts[2], 7)

		_, dup := seen[id]
		require.False(t, dup, "generated duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
