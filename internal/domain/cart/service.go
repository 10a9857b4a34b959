package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solmarket/cart-api/internal/domain/product"
)

// Sentinel errors for cart operations.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrVariantNotFound = errors.New("product variant not found")
)

// Repository defines persistence operations for user carts. Implementations
// must make EnsureCart and UpsertItem atomic (insert-or-update on the natural
// unique key) so concurrent adds for the same pair merge instead of
// duplicating rows.
type Repository interface {
	EnsureCart(ctx context.Context, userID string) (cartID string, err error)
	ListItems(ctx context.Context, cartID string) ([]LineItem, error)
	UpsertItem(ctx context.Context, cartID string, item LineItem) (*LineItem, error)
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
}

// Service owns persisted per-user carts. Guest carts never reach it; they
// are reconciled statelessly with the pure functions in this package.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Load returns the user's cart, creating it lazily on first access, with
// prices refreshed against the catalog.
func (s *Service) Load(ctx context.Context, userID string) (*Cart, error) {
	cartID, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "ensure cart")
	}

	items, err := s.carts.ListItems(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}

	items = s.RefreshPrices(ctx, items)
	return &Cart{UserID: userID, Items: items}, nil
}

// Add puts a product (or one of its variants) into the user's cart. An
// existing entry for the same (product, variant) pair has its quantity
// increased; otherwise a new row is inserted. Both paths are a single atomic
// upsert. The captured price and display fields are snapshotted from the
// catalog at add time.
func (s *Service) Add(ctx context.Context, userID, productID, variantID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}

	item := LineItem{
		ProductID:     productID,
		VariantID:     variantID,
		Quantity:      quantity,
		CapturedPrice: p.EffectivePrice(),
		Name:          p.Name,
		Image:         p.Image,
		StoreID:       p.StoreID,
		StoreName:     p.StoreName,
		StoreSlug:     p.StoreSlug,
		CategoryID:    p.CategoryID,
	}
	if variantID != "" {
		v, ok := findVariant(p.Variants, variantID)
		if !ok {
			return nil, ErrVariantNotFound
		}
		item.CapturedPrice = v.EffectivePrice()
	}

	cartID, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "ensure cart")
	}

	if _, err := s.carts.UpsertItem(ctx, cartID, item); err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}

	return s.Load(ctx, userID)
}

// SetQuantity updates a line item's quantity. A quantity below 1 removes the
// item instead, matching the snapshot semantics of SetQuantity.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID string, quantity int) (*Cart, error) {
	cartID, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "ensure cart")
	}

	if quantity < 1 {
		err = s.carts.DeleteItem(ctx, cartID, itemID)
	} else {
		err = s.carts.SetItemQuantity(ctx, cartID, itemID, quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.Load(ctx, userID)
}

// Remove deletes a line item from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, itemID string) (*Cart, error) {
	cartID, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "ensure cart")
	}
	if err := s.carts.DeleteItem(ctx, cartID, itemID); err != nil {
		return nil, err
	}
	return s.Load(ctx, userID)
}

// Clear removes every line item from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	cartID, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "ensure cart")
	}
	return s.carts.Clear(ctx, cartID)
}

// RefreshPrices fetches the current effective price for every distinct
// product and variant referenced by items, in at most two batched queries.
// Each item's LatestPrice is set to the fetched price and PriceChanged is
// flagged when it differs from the captured price. Items without a fetch
// result keep their captured price, unflagged. Missing display fields are
// filled from the catalog while we have it.
//
// Fetch failures degrade rather than fail: the affected items fall back to
// their captured price and the failure is logged.
func (s *Service) RefreshPrices(ctx context.Context, items []LineItem) []LineItem {
	if len(items) == 0 {
		return items
	}

	productIDs := distinct(items, func(li LineItem) string { return li.ProductID })
	variantIDs := distinct(items, func(li LineItem) string { return li.VariantID })

	productsByID := make(map[string]product.Product)
	if fetched, err := s.products.GetByIDs(ctx, productIDs); err != nil {
		zctx.From(ctx).Warn("Price refresh: product fetch failed", zap.Error(err))
	} else {
		for _, p := range fetched {
			productsByID[p.ID] = p
		}
	}

	variantsByID := make(map[string]product.Variant)
	if len(variantIDs) > 0 {
		if fetched, err := s.products.GetVariantsByIDs(ctx, variantIDs); err != nil {
			zctx.From(ctx).Warn("Price refresh: variant fetch failed", zap.Error(err))
		} else {
			for _, v := range fetched {
				variantsByID[v.ID] = v
			}
		}
	}

	out := make([]LineItem, len(items))
	for i, li := range items {
		out[i] = refreshItem(li, productsByID, variantsByID)
	}
	return out
}

func refreshItem(li LineItem, products map[string]product.Product, variants map[string]product.Variant) LineItem {
	p, haveProduct := products[li.ProductID]

	switch {
	case li.VariantID != "":
		v, ok := variants[li.VariantID]
		if !ok {
			li.LatestPrice = li.CapturedPrice
			break
		}
		price := v.EffectivePrice()
		li.LatestPrice = price
		li.PriceChanged = !price.Equal(li.CapturedPrice)
	case haveProduct:
		price := p.EffectivePrice()
		li.LatestPrice = price
		li.PriceChanged = !price.Equal(li.CapturedPrice)
	default:
		li.LatestPrice = li.CapturedPrice
	}
	li.Refreshed = true

	if haveProduct {
		if li.Name == "" {
			li.Name = p.Name
		}
		if li.Image == "" {
			li.Image = p.Image
		}
		if li.StoreID == "" {
			li.StoreID = p.StoreID
		}
		if li.StoreName == "" {
			li.StoreName = p.StoreName
		}
		if li.StoreSlug == "" {
			li.StoreSlug = p.StoreSlug
		}
		if li.CategoryID == "" {
			li.CategoryID = p.CategoryID
		}
	}
	return li
}

func findVariant(variants []product.Variant, id string) (product.Variant, bool) {
	for _, v := range variants {
		if v.ID == id {
			return v, true
		}
	}
	return product.Variant{}, false
}

// distinct collects unique non-empty values of key over items, preserving
// first-seen order.
func distinct(items []LineItem, key func(LineItem) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, li := range items {
		k := key(li)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
