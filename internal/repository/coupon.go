package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmarket/cart-api/internal/domain/coupon"
)

// Codes are stored uppercase; the validator normalizes before lookup, so an
// exact match suffices. Usage-limit columns are intentionally not selected.
const getCouponByCodeSQL = `SELECT code, discount_type, value, min_purchase, scope,
	product_ids, category_ids, description
	FROM coupons WHERE code = $1 AND active = TRUE`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its (already normalized) code.
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		scope        string
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &rule.MinPurchase, &scope,
		&rule.ProductIDs, &rule.CategoryIDs, &rule.Description,
	)
	rule.Type = coupon.DiscountType(discountType)
	rule.Scope = coupon.Scope(scope)
	return rule, err
}
