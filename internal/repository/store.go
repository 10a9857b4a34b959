package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmarket/cart-api/internal/domain/store"
)

const getStoresByIDsSQL = `SELECT id, name, slug, shipping_fee, free_shipping_threshold
	FROM stores WHERE id = ANY($1)`

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// GetByIDs returns stores matching any of the given IDs.
func (r *StoreRepository) GetByIDs(ctx context.Context, ids []string) ([]store.Store, error) {
	rows, err := r.pool.Query(ctx, getStoresByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting stores by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanStore)
}

func scanStore(row pgx.CollectableRow) (store.Store, error) {
	var st store.Store
	err := row.Scan(&st.ID, &st.Name, &st.Slug, &st.ShippingFee, &st.FreeShippingThreshold)
	return st, err
}
