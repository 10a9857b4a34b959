package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Upsert statements used by the seed and import tools. The serving
// repositories stay read-only for catalog data; all catalog writes go
// through here.
const (
	upsertStoreSQL = `
INSERT INTO stores (id, name, slug, shipping_fee, free_shipping_threshold)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    shipping_fee = EXCLUDED.shipping_fee,
    free_shipping_threshold = EXCLUDED.free_shipping_threshold`

	upsertCategorySQL = `
INSERT INTO categories (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertProductSQL = `
INSERT INTO products (id, store_id, category_id, name, image, price, discount_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    store_id = EXCLUDED.store_id,
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    image = EXCLUDED.image,
    price = EXCLUDED.price,
    discount_price = EXCLUDED.discount_price`

	upsertVariantSQL = `
INSERT INTO product_variants (id, product_id, name, price, discount_price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    product_id = EXCLUDED.product_id,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    discount_price = EXCLUDED.discount_price`

	upsertCouponSQL = `
INSERT INTO coupons (code, discount_type, value, min_purchase, scope, product_ids, category_ids, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    value = EXCLUDED.value,
    min_purchase = EXCLUDED.min_purchase,
    scope = EXCLUDED.scope,
    product_ids = EXCLUDED.product_ids,
    category_ids = EXCLUDED.category_ids,
    description = EXCLUDED.description,
    active = EXCLUDED.active`

	upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, user_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    key_hash = EXCLUDED.key_hash,
    name = EXCLUDED.name,
    user_id = EXCLUDED.user_id`
)

// SeedRepository writes catalog, coupon, and API key rows.
type SeedRepository struct {
	pool *pgxpool.Pool
}

func NewSeedRepository(pool *pgxpool.Pool) *SeedRepository {
	return &SeedRepository{pool: pool}
}

type StoreParams struct {
	ID                    string
	Name                  string
	Slug                  string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func (r *SeedRepository) UpsertStore(ctx context.Context, p StoreParams) error {
	_, err := r.pool.Exec(ctx, upsertStoreSQL, p.ID, p.Name, p.Slug, p.ShippingFee, p.FreeShippingThreshold)
	return errors.Wrapf(err, "upsert store %s", p.ID)
}

func (r *SeedRepository) UpsertCategory(ctx context.Context, id, name string) error {
	_, err := r.pool.Exec(ctx, upsertCategorySQL, id, name)
	return errors.Wrapf(err, "upsert category %s", id)
}

type ProductParams struct {
	ID            string
	StoreID       string
	CategoryID    string
	Name          string
	Image         string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

func (r *SeedRepository) UpsertProduct(ctx context.Context, p ProductParams) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.StoreID, p.CategoryID, p.Name, p.Image, p.Price, p.DiscountPrice)
	return errors.Wrapf(err, "upsert product %s", p.ID)
}

type VariantParams struct {
	ID            string
	ProductID     string
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

func (r *SeedRepository) UpsertVariant(ctx context.Context, p VariantParams) error {
	_, err := r.pool.Exec(ctx, upsertVariantSQL, p.ID, p.ProductID, p.Name, p.Price, p.DiscountPrice)
	return errors.Wrapf(err, "upsert variant %s", p.ID)
}

type CouponParams struct {
	Code         string
	DiscountType string
	Value        decimal.Decimal
	MinPurchase  decimal.Decimal
	Scope        string
	ProductIDs   []string
	CategoryIDs  []string
	Description  string
	Active       bool
}

func (r *SeedRepository) UpsertCoupon(ctx context.Context, p CouponParams) error {
	productIDs := p.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}
	categoryIDs := p.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []string{}
	}
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		p.Code, p.DiscountType, p.Value, p.MinPurchase, p.Scope,
		productIDs, categoryIDs, p.Description, p.Active)
	return errors.Wrapf(err, "upsert coupon %s", p.Code)
}

type APIKeyParams struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
}

func (r *SeedRepository) UpsertAPIKey(ctx context.Context, p APIKeyParams) error {
	_, err := r.pool.Exec(ctx, upsertAPIKeySQL, p.ID, p.KeyHash, p.Name, p.UserID)
	return errors.Wrapf(err, "upsert api key %s", p.ID)
}
