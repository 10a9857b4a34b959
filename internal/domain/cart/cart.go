// Package cart implements the cart reconciliation core: a canonical,
// de-duplicated, price-fresh list of line items, independent of whether the
// cart is held client-side by a guest or persisted for a signed-in user.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a single (product, variant, quantity, price) entry in a cart.
// CapturedPrice is the unit price at add time and is never mutated;
// LatestPrice is the freshest known effective price and drives all totals.
type LineItem struct {
	ID            string
	ProductID     string
	VariantID     string // empty when the base product was added
	Quantity      int
	CapturedPrice decimal.Decimal
	LatestPrice   decimal.Decimal
	PriceChanged  bool

	// Refreshed marks that LatestPrice was set by a price refresh. It keeps
	// a refreshed price of zero distinct from "never refreshed".
	Refreshed bool

	// Denormalized display fields, snapshotted from the catalog.
	Name       string
	Image      string
	StoreID    string
	StoreName  string
	StoreSlug  string
	CategoryID string
}

// UnitPrice returns the price used for totals. Once an item has been through
// a price refresh its LatestPrice is authoritative, zero included; before
// that the captured price is used.
func (li LineItem) UnitPrice() decimal.Decimal {
	if li.Refreshed || !li.LatestPrice.IsZero() {
		return li.LatestPrice
	}
	return li.CapturedPrice
}

// LineTotal returns unit price multiplied by quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// pairKey identifies a line item for merge purposes.
type pairKey struct {
	productID string
	variantID string
}

func (li LineItem) key() pairKey {
	return pairKey{productID: li.ProductID, variantID: li.VariantID}
}

// Cart is a tagged value: a local guest cart (empty UserID) or a cart
// persisted for a signed-in user. A cart is never a mix of both.
type Cart struct {
	UserID string
	Items  []LineItem
}

// Persisted reports whether the cart belongs to a signed-in user.
func (c Cart) Persisted() bool {
	return c.UserID != ""
}

// Subtotal returns the sum of line totals across all items.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.LineTotal())
	}
	return sum
}

// Merge adds a candidate item to the list. When an entry with the same
// (product, variant) pair exists, its quantity is increased by the
// candidate's quantity; otherwise the candidate is appended with a fresh ID
// if it has none. The input slice is not mutated.
func Merge(items []LineItem, item LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)

	key := item.key()
	for i := range out {
		if out[i].key() == key {
			out[i].Quantity += item.Quantity
			return out
		}
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	return append(out, item)
}

// SetQuantity updates the quantity of the item with the given ID. A quantity
// below 1 removes the item entirely; a zero-quantity row is never kept.
func SetQuantity(items []LineItem, id string, quantity int) []LineItem {
	if quantity < 1 {
		return Remove(items, id)
	}

	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i].Quantity = quantity
			break
		}
	}
	return out
}

// Remove deletes the item with the given ID, preserving order of the rest.
func Remove(items []LineItem, id string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, li := range items {
		if li.ID != id {
			out = append(out, li)
		}
	}
	return out
}

// Normalize collapses duplicate (product, variant) pairs by summing their
// quantities and drops entries with a non-positive quantity. Order follows
// the first occurrence of each pair. Guest-submitted item lists pass through
// here before any pricing work.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[pairKey]int, len(items))

	for _, li := range items {
		if li.Quantity < 1 {
			continue
		}
		if i, ok := index[li.key()]; ok {
			out[i].Quantity += li.Quantity
			continue
		}
		if li.ID == "" {
			li.ID = uuid.New().String()
		}
		index[li.key()] = len(out)
		out = append(out, li)
	}
	return out
}
