package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via the Apply function.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate normalizes the code (trim, uppercase), looks up the active rule,
// and evaluates it against the cart. Business rejections (unknown or
// inactive code, minimum purchase not met, scope mismatch) come back as a
// rejected Result with a message, not as an error. ErrEmptyCode is the one
// synchronous validation error, returned before any store call.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Result{}, ErrEmptyCode
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reject("coupon not found or no longer active"), nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}

	if rule.MinPurchase.IsPositive() {
		// The minimum applies to the whole cart, not the eligible portion.
		subtotal := subtotalWhere(items, nil, nil)
		if subtotal.LessThan(rule.MinPurchase) {
			return reject(fmt.Sprintf("coupon requires a minimum purchase of %s", rule.MinPurchase)), nil
		}
	}

	return Apply(rule, items)
}
