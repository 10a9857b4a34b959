package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/pricing"
)

type quoteItemRequest struct {
	ProductID     string           `json:"productId" binding:"required"`
	VariantID     string           `json:"variantId"`
	Quantity      int              `json:"quantity" binding:"required"`
	CapturedPrice *decimal.Decimal `json:"capturedPrice"`
}

type quoteRequest struct {
	Items      []quoteItemRequest `json:"items"`
	CouponCode string             `json:"couponCode"`
}

type storeShippingBody struct {
	StoreID  string          `json:"storeId"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Fee      decimal.Decimal `json:"fee"`
	Free     bool            `json:"free"`
}

type quoteBody struct {
	Items         []lineItemBody      `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Shipping      []storeShippingBody `json:"shipping"`
	ShippingTotal decimal.Decimal     `json:"shippingTotal"`
	Discount      decimal.Decimal     `json:"discount"`
	CouponApplied bool                `json:"couponApplied"`
	CouponMessage string              `json:"couponMessage,omitempty"`
	Total         decimal.Decimal     `json:"total"`
}

// quote prices a cart. Signed-in callers without a request body get their
// persisted cart priced; guests submit their locally held line items, which
// are reconciled (duplicates merged, zero quantities dropped) and refreshed
// against the catalog before pricing.
func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()

	var items []cart.LineItem
	switch {
	case len(req.Items) > 0:
		items = h.cartSvc.RefreshPrices(ctx, guestItems(req.Items))
	case userID(c) != "":
		loaded, err := h.cartSvc.Load(ctx, userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		items = loaded.Items
	default:
		badRequest(c, "items required for guest quotes")
		return
	}

	quote, err := h.quoter.Quote(ctx, items, req.CouponCode)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, h.quoteToBody(quote))
}

// guestItems converts guest-submitted items into line items and collapses
// duplicates. The captured price, when the client kept one, feeds the
// price-changed flag after refresh; absent that, the refreshed price is
// treated as captured.
func guestItems(reqItems []quoteItemRequest) []cart.LineItem {
	items := make([]cart.LineItem, 0, len(reqItems))
	for _, it := range reqItems {
		li := cart.LineItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		}
		if it.CapturedPrice != nil {
			li.CapturedPrice = *it.CapturedPrice
		}
		items = append(items, li)
	}
	return cart.Normalize(items)
}

func (h *Handler) quoteToBody(q *pricing.Quote) quoteBody {
	shipping := make([]storeShippingBody, len(q.Shipping))
	for i, g := range q.Shipping {
		shipping[i] = storeShippingBody{
			StoreID:  g.StoreID,
			Subtotal: g.Subtotal,
			Fee:      g.Fee,
			Free:     g.Free,
		}
	}
	return quoteBody{
		Items:         h.itemsToBody(q.Items),
		Subtotal:      q.Subtotal,
		Shipping:      shipping,
		ShippingTotal: q.ShippingTotal,
		Discount:      q.Discount,
		CouponApplied: q.CouponApplied,
		CouponMessage: q.CouponMessage,
		Total:         q.Total,
	}
}
