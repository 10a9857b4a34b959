package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApply_PercentageFloors(t *testing.T) {
	rule := &Rule{
		Code:  "TEN",
		Type:  DiscountPercentage,
		Value: dec("10"),
		Scope: ScopeAllProducts,
	}
	items := []Item{{ProductID: "p1", Price: dec("99"), Quantity: 1}}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.True(t, res.Discount.Equal(dec("9")), "10%% of 99 floors to 9, got %s", res.Discount)
}

func TestApply_PercentageExact(t *testing.T) {
	rule := &Rule{Type: DiscountPercentage, Value: dec("10"), Scope: ScopeAllProducts}
	items := []Item{{ProductID: "p1", Price: dec("130"), Quantity: 1}}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("13")))
}

func TestApply_FixedCappedAtEligible(t *testing.T) {
	rule := &Rule{Type: DiscountFixed, Value: dec("50"), Scope: ScopeAllProducts}
	items := []Item{{ProductID: "p1", Price: dec("30"), Quantity: 1}}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("30")), "fixed discount never exceeds the eligible subtotal")
}

func TestApply_FixedBelowEligible(t *testing.T) {
	rule := &Rule{Type: DiscountFixed, Value: dec("5"), Scope: ScopeAllProducts}
	items := []Item{{ProductID: "p1", Price: dec("30"), Quantity: 2}}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("5")))
}

func TestApply_ProductScopeExcludesOthers(t *testing.T) {
	rule := &Rule{
		Type:       DiscountPercentage,
		Value:      dec("50"),
		Scope:      ScopeProducts,
		ProductIDs: []string{"p1"},
	}
	items := []Item{
		{ProductID: "p1", Price: dec("40"), Quantity: 1},
		{ProductID: "p2", Price: dec("100"), Quantity: 3},
	}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("20")), "only p1's 40 is eligible")
}

func TestApply_CategoryScope(t *testing.T) {
	rule := &Rule{
		Type:        DiscountFixed,
		Value:       dec("10"),
		Scope:       ScopeCategories,
		CategoryIDs: []string{"grocery"},
	}
	items := []Item{
		{ProductID: "p1", CategoryID: "grocery", Price: dec("6"), Quantity: 1},
		{ProductID: "p2", CategoryID: "electronics", Price: dec("500"), Quantity: 1},
	}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("6")), "cap applies to the eligible portion only")
}

func TestApply_ScopedNoMatchRejects(t *testing.T) {
	rule := &Rule{
		Type:       DiscountPercentage,
		Value:      dec("10"),
		Scope:      ScopeProducts,
		ProductIDs: []string{"p9"},
	}
	items := []Item{{ProductID: "p1", Price: dec("100"), Quantity: 1}}

	res, err := Apply(rule, items)
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, "coupon does not match your cart", res.Message)
	assert.True(t, res.Discount.IsZero())
}

func TestApply_AllProductsOnEmptyCart(t *testing.T) {
	rule := &Rule{Type: DiscountPercentage, Value: dec("10"), Scope: ScopeAllProducts}

	res, err := Apply(rule, nil)
	require.NoError(t, err)
	assert.False(t, res.Rejected, "unscoped rule on an empty cart just yields zero")
	assert.True(t, res.Discount.IsZero())
}

func TestApply_UnknownType(t *testing.T) {
	rule := &Rule{Type: "bogus", Scope: ScopeAllProducts}

	_, err := Apply(rule, []Item{{Price: dec("10"), Quantity: 1}})
	assert.Error(t, err)
}

func TestEligibleSubtotal_MultipliesQuantity(t *testing.T) {
	rule := &Rule{Scope: ScopeAllProducts}
	items := []Item{
		{ProductID: "p1", Price: dec("10.50"), Quantity: 2},
		{ProductID: "p2", Price: dec("3"), Quantity: 3},
	}

	assert.True(t, EligibleSubtotal(rule, items).Equal(dec("30.00")))
}
