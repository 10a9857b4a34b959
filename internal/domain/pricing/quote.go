package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/coupon"
	"github.com/solmarket/cart-api/internal/domain/store"
)

// Quote is the fully priced view of a cart: refreshed line items, per-store
// shipping, an optional coupon outcome, and the grand total.
type Quote struct {
	Items         []cart.LineItem
	Subtotal      decimal.Decimal
	Shipping      []StoreShipping
	ShippingTotal decimal.Decimal
	Discount      decimal.Decimal
	CouponApplied bool
	CouponMessage string
	Total         decimal.Decimal
}

// Quoter prices reconciled carts.
type Quoter struct {
	stores  store.Repository
	coupons coupon.Validator
}

// NewQuoter creates a Quoter with the required dependencies.
func NewQuoter(stores store.Repository, coupons coupon.Validator) *Quoter {
	return &Quoter{stores: stores, coupons: coupons}
}

// Quote prices the given line items: cart subtotal, per-store shipping, and
// the effect of an optional coupon code. Items are expected to be
// reconciled and price-refreshed already. A coupon that does not apply
// yields a zero discount and a message, never an error.
//
// Total = subtotal + shipping - discount.
func (q *Quoter) Quote(ctx context.Context, items []cart.LineItem, couponCode string) (*Quote, error) {
	subtotal := cart.Subtotal(items)

	rates, err := q.storeRates(ctx, items)
	if err != nil {
		return nil, errors.Wrap(err, "fetch store shipping rates")
	}
	groups, shippingTotal := ComputeShipping(items, rates)

	quote := &Quote{
		Items:         items,
		Subtotal:      subtotal,
		Shipping:      groups,
		ShippingTotal: shippingTotal,
		Discount:      decimal.Zero,
	}

	if couponCode != "" {
		result, err := q.coupons.Validate(ctx, couponCode, couponItems(items))
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if result.Rejected {
			quote.CouponMessage = result.Message
		} else {
			quote.CouponApplied = true
			quote.Discount = result.Discount
			quote.CouponMessage = result.Description
		}
	}

	quote.Total = subtotal.Add(shippingTotal).Sub(quote.Discount)
	return quote, nil
}

func (q *Quoter) storeRates(ctx context.Context, items []cart.LineItem) (map[string]store.Store, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, li := range items {
		if li.StoreID == "" {
			continue
		}
		if _, ok := seen[li.StoreID]; ok {
			continue
		}
		seen[li.StoreID] = struct{}{}
		ids = append(ids, li.StoreID)
	}
	if len(ids) == 0 {
		return map[string]store.Store{}, nil
	}

	stores, err := q.stores.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]store.Store, len(stores))
	for _, st := range stores {
		rates[st.ID] = st
	}
	return rates, nil
}

func couponItems(items []cart.LineItem) []coupon.Item {
	out := make([]coupon.Item, len(items))
	for i, li := range items {
		out[i] = coupon.Item{
			ProductID:  li.ProductID,
			CategoryID: li.CategoryID,
			Price:      li.UnitPrice(),
			Quantity:   li.Quantity,
		}
	}
	return out
}
