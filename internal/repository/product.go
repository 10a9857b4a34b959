package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmarket/cart-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT p.id, p.store_id, s.name, s.slug, p.category_id,
			p.name, p.image, p.price, p.discount_price
		FROM products p JOIN stores s ON s.id = p.store_id
		ORDER BY p.id`

	getProductByIDSQL = `SELECT p.id, p.store_id, s.name, s.slug, p.category_id,
			p.name, p.image, p.price, p.discount_price
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT p.id, p.store_id, s.name, s.slug, p.category_id,
			p.name, p.image, p.price, p.discount_price
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.id = ANY($1)`

	getVariantsByProductSQL = `SELECT id, product_id, name, price, discount_price
		FROM product_variants WHERE product_id = $1 ORDER BY id`

	getVariantsByIDsSQL = `SELECT id, product_id, name, price, discount_price
		FROM product_variants WHERE id = ANY($1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID, without variants.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier, with variants loaded.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	vrows, err := r.pool.Query(ctx, getVariantsByProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variants for product %q: %w", id, err)
	}
	variants, err := pgx.CollectRows(vrows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("getting variants for product %q: %w", id, err)
	}

	p.Variants = variants
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs, without variants.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetVariantsByIDs returns variants matching any of the given IDs.
func (r *ProductRepository) GetVariantsByIDs(ctx context.Context, ids []string) ([]product.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting variants by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.StoreID, &p.StoreName, &p.StoreSlug, &p.CategoryID,
		&p.Name, &p.Image, &p.Price, &p.DiscountPrice,
	)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (product.Variant, error) {
	var v product.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.DiscountPrice)
	return v, err
}
