package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/solmarket/cart-api/internal/domain/product"
)

type variantBody struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
}

type productBody struct {
	ID             string          `json:"id"`
	StoreID        string          `json:"storeId"`
	CategoryID     string          `json:"categoryId"`
	Name           string          `json:"name"`
	Image          string          `json:"image,omitempty"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	Variants       []variantBody   `json:"variants,omitempty"`
}

// listProducts returns every product in the catalog.
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]productBody, len(products))
	for i, p := range products {
		out[i] = h.productToBody(p)
	}
	c.JSON(http.StatusOK, out)
}

// getProduct returns a single product with its variants.
func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody{Code: 404, Message: "product not found"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.productToBody(*p))
}

func (h *Handler) productToBody(p product.Product) productBody {
	image := p.Image
	if image != "" {
		image = h.imageBaseURL + image
	}

	variants := make([]variantBody, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = variantBody{
			ID:             v.ID,
			Name:           v.Name,
			Price:          v.Price,
			EffectivePrice: v.EffectivePrice(),
		}
	}

	return productBody{
		ID:             p.ID,
		StoreID:        p.StoreID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Image:          image,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		Variants:       variants,
	}
}
