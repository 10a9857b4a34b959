package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmarket/cart-api/internal/domain/cart"
)

const (
	// Atomic get-or-create keyed by the owner. The no-op DO UPDATE makes
	// RETURNING work on the conflict path, so two concurrent first accesses
	// both land on the same row instead of one failing on the unique index.
	ensureCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`

	listCartItemsSQL = `SELECT id, product_id, variant_id, quantity, captured_price,
		name, image, store_id, store_name, store_slug, category_id
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`

	// Merge semantics live in the database: a second add for the same
	// (product, variant) pair sums quantities atomically, never duplicates.
	upsertCartItemSQL = `INSERT INTO cart_items
		(id, cart_id, product_id, variant_id, quantity, captured_price,
		 name, image, store_id, store_name, store_slug, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (cart_id, product_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, product_id, variant_id, quantity, captured_price,
			name, image, store_id, store_name, store_slug, category_id`

	setItemQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// EnsureCart returns the ID of the user's cart, creating it lazily.
func (r *CartRepository) EnsureCart(ctx context.Context, userID string) (string, error) {
	var cartID string
	err := r.pool.QueryRow(ctx, ensureCartSQL, uuid.New().String(), userID).Scan(&cartID)
	if err != nil {
		return "", fmt.Errorf("ensuring cart for user %q: %w", userID, err)
	}
	return cartID, nil
}

// ListItems returns the cart's line items in insertion order.
func (r *CartRepository) ListItems(ctx context.Context, cartID string) ([]cart.LineItem, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing items for cart %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanLineItem)
}

// UpsertItem inserts the line item or, when the (product, variant) pair
// already exists in the cart, adds its quantity to the existing row. The
// resulting row is returned either way.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID string, item cart.LineItem) (*cart.LineItem, error) {
	id := item.ID
	if id == "" {
		id = uuid.New().String()
	}

	rows, err := r.pool.Query(ctx, upsertCartItemSQL,
		id, cartID, item.ProductID, item.VariantID, item.Quantity, item.CapturedPrice,
		item.Name, item.Image, item.StoreID, item.StoreName, item.StoreSlug, item.CategoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting item into cart %q: %w", cartID, err)
	}

	li, err := pgx.CollectExactlyOneRow(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("upserting item into cart %q: %w", cartID, err)
	}
	return &li, nil
}

// SetItemQuantity updates a line item's quantity in place. Returns
// cart.ErrItemNotFound when the item is not in the cart.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, setItemQuantitySQL, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating quantity for item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(cart.ErrItemNotFound, "item %q", itemID)
	}
	return nil
}

// DeleteItem removes a single line item from the cart. Deleting an item that
// is already gone is not an error.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartItemSQL, cartID, itemID); err != nil {
		return fmt.Errorf("deleting item %q: %w", itemID, err)
	}
	return nil
}

// Clear removes all line items from the cart.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return nil
}

func scanLineItem(row pgx.CollectableRow) (cart.LineItem, error) {
	var li cart.LineItem
	err := row.Scan(
		&li.ID, &li.ProductID, &li.VariantID, &li.Quantity, &li.CapturedPrice,
		&li.Name, &li.Image, &li.StoreID, &li.StoreName, &li.StoreSlug, &li.CategoryID,
	)
	return li, err
}
