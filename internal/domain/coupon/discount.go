package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the discount a rule yields for the given cart items,
// assuming lookup and minimum-purchase checks already passed. A scoped rule
// that matches nothing in the cart is rejected with a message rather than
// erroring.
func Apply(rule *Rule, items []Item) (Result, error) {
	eligible := EligibleSubtotal(rule, items)
	if rule.Scope != ScopeAllProducts && eligible.IsZero() {
		return reject("coupon does not match your cart"), nil
	}

	switch rule.Type {
	case DiscountPercentage:
		// floor keeps the discount at whole currency units: 10% of 99 is 9.
		amount := eligible.Mul(rule.Value).Div(hundred).Floor()
		return Result{Discount: amount, Description: rule.Description}, nil
	case DiscountFixed:
		// Never discount more than the eligible subtotal.
		amount := decimal.Min(rule.Value, eligible)
		return Result{Discount: amount, Description: rule.Description}, nil
	default:
		return Result{}, errors.Errorf("unsupported discount type: %q", rule.Type)
	}
}

// EligibleSubtotal returns the portion of the cart subtotal the rule's scope
// allows it to discount.
func EligibleSubtotal(rule *Rule, items []Item) decimal.Decimal {
	switch rule.Scope {
	case ScopeProducts:
		return subtotalWhere(items, memberOf(rule.ProductIDs), byProduct)
	case ScopeCategories:
		return subtotalWhere(items, memberOf(rule.CategoryIDs), byCategory)
	default:
		return subtotalWhere(items, nil, nil)
	}
}

func byProduct(it Item) string  { return it.ProductID }
func byCategory(it Item) string { return it.CategoryID }

func memberOf(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func subtotalWhere(items []Item, set map[string]struct{}, key func(Item) string) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if set != nil {
			if _, ok := set[key(it)]; !ok {
				continue
			}
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}
