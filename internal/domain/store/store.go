package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is a seller shop. Only its shipping configuration matters to the
// cart: a flat fee and an optional free-shipping threshold (zero means no
// free-shipping rule).
type Store struct {
	ID                    string
	Name                  string
	Slug                  string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Repository defines read operations for seller stores.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Store, error)
}
