package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getCart reloads the user's persisted cart with refreshed prices.
func (h *Handler) getCart(c *gin.Context) {
	loaded, err := h.cartSvc.Load(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(loaded.Items))
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// addItem adds a product or variant to the cart, merging into an existing
// line when the (product, variant) pair is already present.
func (h *Handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	loaded, err := h.cartSvc.Add(c.Request.Context(), userID(c), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(loaded.Items))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateItem sets a line item's quantity; anything below 1 removes the item.
func (h *Handler) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	loaded, err := h.cartSvc.SetQuantity(c.Request.Context(), userID(c), c.Param("id"), req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(loaded.Items))
}

// removeItem deletes a single line item.
func (h *Handler) removeItem(c *gin.Context) {
	loaded, err := h.cartSvc.Remove(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(loaded.Items))
}

// clearCart removes every line item from the user's cart.
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartSvc.Clear(c.Request.Context(), userID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
