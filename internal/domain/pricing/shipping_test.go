package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func li(storeID string, qty int, price string) cart.LineItem {
	return cart.LineItem{
		StoreID:       storeID,
		Quantity:      qty,
		CapturedPrice: dec(price),
	}
}

func rates(stores ...store.Store) map[string]store.Store {
	m := make(map[string]store.Store, len(stores))
	for _, s := range stores {
		m[s.ID] = s
	}
	return m
}

func TestComputeShipping_ThresholdBoundary(t *testing.T) {
	st := store.Store{ID: "s1", ShippingFee: dec("20"), FreeShippingThreshold: dec("200")}

	tests := []struct {
		name     string
		subtotal string
		fee      string
		free     bool
	}{
		{name: "at threshold ships free", subtotal: "200", fee: "0", free: true},
		{name: "above threshold ships free", subtotal: "250", fee: "0", free: true},
		{name: "just below threshold pays fee", subtotal: "199.99", fee: "20", free: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, total := ComputeShipping([]cart.LineItem{li("s1", 1, tt.subtotal)}, rates(st))

			require.Len(t, groups, 1)
			assert.True(t, groups[0].Fee.Equal(dec(tt.fee)), "fee: got %s", groups[0].Fee)
			assert.Equal(t, tt.free, groups[0].Free)
			assert.True(t, total.Equal(dec(tt.fee)))
		})
	}
}

func TestComputeShipping_ZeroThresholdNeverFree(t *testing.T) {
	st := store.Store{ID: "s1", ShippingFee: dec("8.50"), FreeShippingThreshold: decimal.Zero}

	groups, total := ComputeShipping([]cart.LineItem{li("s1", 1, "10000")}, rates(st))

	require.Len(t, groups, 1)
	assert.False(t, groups[0].Free)
	assert.True(t, total.Equal(dec("8.50")))
}

func TestComputeShipping_GroupsByStore(t *testing.T) {
	s1 := store.Store{ID: "s1", ShippingFee: dec("20"), FreeShippingThreshold: dec("200")}
	s2 := store.Store{ID: "s2", ShippingFee: dec("8.50")}

	items := []cart.LineItem{
		li("s1", 2, "60"), // 120
		li("s2", 1, "30"),
		li("s1", 1, "90"), // s1 total 210, free
	}

	groups, total := ComputeShipping(items, rates(s1, s2))

	require.Len(t, groups, 2)
	assert.Equal(t, "s1", groups[0].StoreID, "groups sorted by store ID")
	assert.True(t, groups[0].Subtotal.Equal(dec("210")))
	assert.True(t, groups[0].Free)
	assert.Equal(t, "s2", groups[1].StoreID)
	assert.True(t, groups[1].Fee.Equal(dec("8.50")))
	assert.True(t, total.Equal(dec("8.50")), "only the s2 fee remains")
}

func TestComputeShipping_FeesAreIndependent(t *testing.T) {
	s1 := store.Store{ID: "s1", ShippingFee: dec("5")}
	s2 := store.Store{ID: "s2", ShippingFee: dec("7")}

	_, total := ComputeShipping([]cart.LineItem{li("s1", 1, "10"), li("s2", 1, "10")}, rates(s1, s2))

	assert.True(t, total.Equal(dec("12")))
}

func TestComputeShipping_UnknownStoreShipsFree(t *testing.T) {
	groups, total := ComputeShipping([]cart.LineItem{li("s-gone", 1, "50")}, rates())

	require.Len(t, groups, 1)
	assert.True(t, groups[0].Fee.IsZero())
	assert.False(t, groups[0].Free, "no rate means no fee, not a free-shipping win")
	assert.True(t, total.IsZero())
}

func TestComputeShipping_EmptyCart(t *testing.T) {
	groups, total := ComputeShipping(nil, rates())

	assert.Empty(t, groups)
	assert.True(t, total.IsZero())
}
