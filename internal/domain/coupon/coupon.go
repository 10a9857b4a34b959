package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage discount to the eligible
	// subtotal, floored to whole currency units.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the eligible
	// subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Scope declares which part of the cart a coupon may discount.
type Scope string

const (
	// ScopeAllProducts makes the whole cart subtotal eligible.
	ScopeAllProducts Scope = "all_products"
	// ScopeProducts restricts eligibility to items whose product ID is in
	// the coupon's product set.
	ScopeProducts Scope = "specific_products"
	// ScopeCategories restricts eligibility to items whose category ID is in
	// the coupon's category set.
	ScopeCategories Scope = "specific_categories"
)

var (
	// ErrEmptyCode is returned before any store call when the submitted code
	// is blank.
	ErrEmptyCode = errors.New("coupon code required")
	// ErrNotFound is returned by repositories when no active coupon matches
	// a code.
	ErrNotFound = errors.New("coupon not found")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// The usage-limit counters stored alongside a coupon are deliberately absent:
// the cart-side validator never reads them.
type Rule struct {
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal // zero means no minimum
	Scope       Scope
	ProductIDs  []string
	CategoryIDs []string
	Description string
}

// Item is a cart line viewed by the discount engine.
type Item struct {
	ProductID  string
	CategoryID string
	Price      decimal.Decimal
	Quantity   int
}

// Result is the outcome of evaluating a coupon against a cart. A rejected
// coupon is a normal negative outcome, not an error: Discount is zero and
// Message explains why.
type Result struct {
	Discount    decimal.Decimal
	Description string
	Rejected    bool
	Message     string
}

func reject(message string) Result {
	return Result{Discount: decimal.Zero, Rejected: true, Message: message}
}

// Repository provides lookup of active coupon rules by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// Validator evaluates a coupon code against cart items.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (Result, error)
}
