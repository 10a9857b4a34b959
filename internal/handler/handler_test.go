package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solmarket/cart-api/internal/domain/auth"
	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/coupon"
	"github.com/solmarket/cart-api/internal/domain/pricing"
	"github.com/solmarket/cart-api/internal/domain/product"
	"github.com/solmarket/cart-api/internal/domain/store"
)

const (
	testPepper = "test-pepper"
	testAPIKey = "apikey_secret_value"
	testUserID = "user-1"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeProducts struct {
	products map[string]product.Product
}

func (f *fakeProducts) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetVariantsByIDs(_ context.Context, ids []string) ([]product.Variant, error) {
	var out []product.Variant
	for _, p := range f.products {
		for _, v := range p.Variants {
			for _, id := range ids {
				if v.ID == id {
					out = append(out, v)
				}
			}
		}
	}
	return out, nil
}

type fakeCarts struct {
	items  []cart.LineItem
	nextID int
}

func (f *fakeCarts) EnsureCart(_ context.Context, userID string) (string, error) {
	return "cart-" + userID, nil
}

func (f *fakeCarts) ListItems(_ context.Context, _ string) ([]cart.LineItem, error) {
	out := make([]cart.LineItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeCarts) UpsertItem(_ context.Context, _ string, item cart.LineItem) (*cart.LineItem, error) {
	for i := range f.items {
		if f.items[i].ProductID == item.ProductID && f.items[i].VariantID == item.VariantID {
			f.items[i].Quantity += item.Quantity
			return &f.items[i], nil
		}
	}
	f.nextID++
	item.ID = "item-" + string(rune('0'+f.nextID))
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeCarts) SetItemQuantity(_ context.Context, _ string, itemID string, quantity int) error {
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (f *fakeCarts) DeleteItem(_ context.Context, _ string, itemID string) error {
	out := f.items[:0]
	for _, li := range f.items {
		if li.ID != itemID {
			out = append(out, li)
		}
	}
	f.items = out
	return nil
}

func (f *fakeCarts) Clear(_ context.Context, _ string) error {
	f.items = nil
	return nil
}

type fakeStores struct {
	stores map[string]store.Store
}

func (f *fakeStores) GetByIDs(_ context.Context, ids []string) ([]store.Store, error) {
	var out []store.Store
	for _, id := range ids {
		if s, ok := f.stores[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCoupons struct {
	rules map[string]*coupon.Rule
}

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	r, ok := f.rules[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return r, nil
}

type fakeAPIKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (f *fakeAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := f.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return info, nil
}

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type testEnv struct {
	router *gin.Engine
	carts  *fakeCarts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	products := &fakeProducts{
		products: map[string]product.Product{
			"p-widget": {
				ID: "p-widget", StoreID: "s1", CategoryID: "grocery",
				Name: "Widget", Price: dec("50"),
			},
			"p-gadget": {
				ID: "p-gadget", StoreID: "s1", CategoryID: "grocery",
				Name: "Gadget", Price: dec("30"),
				Variants: []product.Variant{
					{ID: "v-big", ProductID: "p-gadget", Name: "Big", Price: dec("45")},
				},
			},
		},
	}
	stores := &fakeStores{
		stores: map[string]store.Store{
			"s1": {ID: "s1", Name: "Store One", ShippingFee: dec("20"), FreeShippingThreshold: dec("100")},
		},
	}
	coupons := &fakeCoupons{
		rules: map[string]*coupon.Rule{
			"SAVE10": {
				Code:        "SAVE10",
				Type:        coupon.DiscountPercentage,
				Value:       dec("10"),
				Scope:       coupon.ScopeAllProducts,
				Description: "10% off your entire cart",
			},
		},
	}
	apikeys := &fakeAPIKeys{
		byHash: map[string]*auth.APIKeyInfo{
			hashKey(testAPIKey): {ID: "default", KeyHash: hashKey(testAPIKey), Name: "test", UserID: testUserID},
		},
	}

	carts := &fakeCarts{}
	cartSvc := cart.NewService(carts, products)
	quoter := pricing.NewQuoter(stores, coupon.NewRepoValidator(coupons))

	cfg := Config{}
	h := NewHandler(cfg, products, cartSvc, quoter)
	sec := NewSecurity(apikeys, []byte(testPepper))

	return &testEnv{router: NewRouter(cfg, h, sec), carts: carts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]productBody](t, w), 2)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/p-nope", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/cart"},
		{http.MethodDelete, "/api/cart"},
		{http.MethodPost, "/api/cart/items"},
		{http.MethodPatch, "/api/cart/items/x"},
		{http.MethodDelete, "/api/cart/items/x"},
	} {
		w := env.do(t, tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCartRoutes_RejectBadKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", nil, "wrong-key")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddItem_MergesSamePair(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"productId": "p-widget", "quantity": 2}
	w := env.do(t, http.MethodPost, "/api/cart/items", body, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart/items", body, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[cartBody](t, w)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 4, got.Items[0].Quantity)
	assert.True(t, got.Subtotal.Equal(dec("200")))
}

func TestAddItem_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"productId": "p-nope", "quantity": 1}
	w := env.do(t, http.MethodPost, "/api/cart/items", body, testAPIKey)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAddItem_UnknownVariant(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"productId": "p-gadget", "variantId": "v-nope", "quantity": 1}
	w := env.do(t, http.MethodPost, "/api/cart/items", body, testAPIKey)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAddItem_MissingQuantity(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"productId": "p-widget"}
	w := env.do(t, http.MethodPost, "/api/cart/items", body, testAPIKey)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateItem_ZeroQuantityRemoves(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p-widget", "quantity": 2}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	itemID := decode[cartBody](t, w).Items[0].ID

	w = env.do(t, http.MethodPatch, "/api/cart/items/"+itemID, map[string]any{"quantity": 0}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, decode[cartBody](t, w).Items)
}

func TestUpdateItem_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPatch, "/api/cart/items/nope", map[string]any{"quantity": 3}, testAPIKey)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p-widget", "quantity": 1}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/cart", nil, testAPIKey)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/cart", nil, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartBody](t, w).Items)
}

func TestQuote_GuestFullFlow(t *testing.T) {
	env := newTestEnv(t)

	// Duplicated pair merges to quantity 2 (100) plus a 30 gadget: subtotal
	// 130, which clears the 100 free-shipping threshold. SAVE10 takes 13.
	body := map[string]any{
		"items": []map[string]any{
			{"productId": "p-widget", "quantity": 1},
			{"productId": "p-widget", "quantity": 1},
			{"productId": "p-gadget", "quantity": 1},
		},
		"couponCode": "save10",
	}
	w := env.do(t, http.MethodPost, "/api/quote", body, "")

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[quoteBody](t, w)
	require.Len(t, got.Items, 2, "duplicate pairs merge")
	assert.True(t, got.Subtotal.Equal(dec("130")))
	assert.True(t, got.ShippingTotal.IsZero())
	assert.True(t, got.CouponApplied)
	assert.True(t, got.Discount.Equal(dec("13")))
	assert.True(t, got.Total.Equal(dec("117")))
}

func TestQuote_GuestPriceChangedFlag(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"items": []map[string]any{
			{"productId": "p-widget", "quantity": 1, "capturedPrice": "45"},
		},
	}
	w := env.do(t, http.MethodPost, "/api/quote", body, "")

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[quoteBody](t, w)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].PriceChanged)
	assert.True(t, got.Items[0].LatestPrice.Equal(dec("50")))
	assert.True(t, got.Subtotal.Equal(dec("50")), "totals use the refreshed price")
}

func TestQuote_RejectedCoupon(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"items":      []map[string]any{{"productId": "p-gadget", "quantity": 1}},
		"couponCode": "BOGUS99",
	}
	w := env.do(t, http.MethodPost, "/api/quote", body, "")

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[quoteBody](t, w)
	assert.False(t, got.CouponApplied)
	assert.True(t, got.Discount.IsZero())
	assert.NotEmpty(t, got.CouponMessage)
}

func TestQuote_GuestWithoutItems(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/quote", map[string]any{}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuote_AuthedUsesPersistedCart(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p-gadget", "quantity": 2}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/quote", map[string]any{}, testAPIKey)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[quoteBody](t, w)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Subtotal.Equal(dec("60")))
}

func TestQuote_InvalidKeyRejectedEvenThoughOptional(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"items": []map[string]any{{"productId": "p-widget", "quantity": 1}},
	}
	w := env.do(t, http.MethodPost, "/api/quote", body, "typo-key")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
