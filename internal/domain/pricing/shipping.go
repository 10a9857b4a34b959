// Package pricing computes shipping and final totals for a reconciled cart.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/store"
)

// StoreShipping is the shipping outcome for one store's group of line items.
type StoreShipping struct {
	StoreID  string
	Subtotal decimal.Decimal
	Fee      decimal.Decimal
	Free     bool
}

// ComputeShipping groups line items by owning store, sums each group's
// subtotal, and waives a store's flat fee when the group meets that store's
// free-shipping threshold (a zero threshold means no free-shipping rule).
// Stores absent from rates ship free of charge. Each store's fee is
// independent; the total is their plain sum. Groups come back ordered by
// store ID for deterministic output.
func ComputeShipping(items []cart.LineItem, rates map[string]store.Store) ([]StoreShipping, decimal.Decimal) {
	subtotals := make(map[string]decimal.Decimal)
	for _, li := range items {
		subtotals[li.StoreID] = subtotals[li.StoreID].Add(li.LineTotal())
	}

	groups := make([]StoreShipping, 0, len(subtotals))
	total := decimal.Zero
	for storeID, subtotal := range subtotals {
		g := StoreShipping{StoreID: storeID, Subtotal: subtotal}

		rate, ok := rates[storeID]
		switch {
		case !ok:
			g.Fee = decimal.Zero
		case rate.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(rate.FreeShippingThreshold):
			g.Fee = decimal.Zero
			g.Free = true
		default:
			g.Fee = rate.ShippingFee
		}

		total = total.Add(g.Fee)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].StoreID < groups[j].StoreID })
	return groups, total
}
