package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item listed by a seller store. StoreName and
// StoreSlug are denormalized from the owning store so cart line items can
// snapshot them without a second lookup.
type Product struct {
	ID            string
	StoreID       string
	StoreName     string
	StoreSlug     string
	CategoryID    string
	Name          string
	Image         string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Variants      []Variant
}

// Variant is a purchasable variation of a product with its own price.
type Variant struct {
	ID            string
	ProductID     string
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

// EffectivePrice returns the discounted price when set, otherwise the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// EffectivePrice returns the discounted price when set, otherwise the base price.
func (v Variant) EffectivePrice() decimal.Decimal {
	if v.DiscountPrice != nil {
		return *v.DiscountPrice
	}
	return v.Price
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	GetVariantsByIDs(ctx context.Context, ids []string) ([]Variant, error)
}
