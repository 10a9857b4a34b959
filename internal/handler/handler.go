// Package handler exposes the cart and pricing domain over HTTP using gin.
package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solmarket/cart-api/internal/domain/cart"
	"github.com/solmarket/cart-api/internal/domain/coupon"
	"github.com/solmarket/cart-api/internal/domain/pricing"
	"github.com/solmarket/cart-api/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string

	// CORS settings forwarded to the gin CORS middleware.
	CORSOrigins          []string
	CORSAllowCredentials bool
}

// Handler holds the domain dependencies behind the HTTP routes.
type Handler struct {
	products     product.Repository
	cartSvc      *cart.Service
	quoter       *pricing.Quoter
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	cartSvc *cart.Service,
	quoter *pricing.Quoter,
) *Handler {
	return &Handler{
		products:     products,
		cartSvc:      cartSvc,
		quoter:       quoter,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// NewRouter builds the gin engine with all API routes. Cart routes require
// an API key bound to a user; the quote route accepts anonymous requests so
// guests can price their locally held cart.
func NewRouter(cfg Config, h *Handler, sec *Security) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	corsCfg := cors.Config{
		AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: cfg.CORSAllowCredentials,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.POST("/quote", sec.Optional(), h.quote)

	authed := api.Group("/cart", sec.Required())
	authed.GET("", h.getCart)
	authed.DELETE("", h.clearCart)
	authed.POST("/items", h.addItem)
	authed.PATCH("/items/:id", h.updateItem)
	authed.DELETE("/items/:id", h.removeItem)

	return router
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fail maps domain errors to HTTP responses. Validation failures are 4xx
// with their own message; everything else is logged and collapsed into a
// generic 500 so internals never leak.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coupon.ErrEmptyCode):
		c.JSON(http.StatusBadRequest, errorBody{Code: 400, Message: err.Error()})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrVariantNotFound):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Code: 422, Message: err.Error()})
	case errors.Is(err, product.ErrNotFound):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Code: 422, Message: err.Error()})
	case errors.Is(err, cart.ErrItemNotFound):
		c.JSON(http.StatusNotFound, errorBody{Code: 404, Message: err.Error()})
	default:
		zctx.From(c.Request.Context()).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Code: 500, Message: "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Code: 400, Message: message})
}

// lineItemBody is the wire form of a cart line item.
type lineItemBody struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"productId"`
	VariantID     string          `json:"variantId,omitempty"`
	Quantity      int             `json:"quantity"`
	CapturedPrice decimal.Decimal `json:"capturedPrice"`
	LatestPrice   decimal.Decimal `json:"latestPrice"`
	PriceChanged  bool            `json:"priceChanged"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	StoreID       string          `json:"storeId"`
	StoreName     string          `json:"storeName,omitempty"`
	StoreSlug     string          `json:"storeSlug,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
}

func (h *Handler) lineItemToBody(li cart.LineItem) lineItemBody {
	image := li.Image
	if image != "" {
		image = h.imageBaseURL + image
	}
	return lineItemBody{
		ID:            li.ID,
		ProductID:     li.ProductID,
		VariantID:     li.VariantID,
		Quantity:      li.Quantity,
		CapturedPrice: li.CapturedPrice,
		LatestPrice:   li.UnitPrice(),
		PriceChanged:  li.PriceChanged,
		LineTotal:     li.LineTotal(),
		Name:          li.Name,
		Image:         image,
		StoreID:       li.StoreID,
		StoreName:     li.StoreName,
		StoreSlug:     li.StoreSlug,
		CategoryID:    li.CategoryID,
	}
}

func (h *Handler) itemsToBody(items []cart.LineItem) []lineItemBody {
	out := make([]lineItemBody, len(items))
	for i, li := range items {
		out[i] = h.lineItemToBody(li)
	}
	return out
}

// cartBody is the wire form of a loaded cart.
type cartBody struct {
	Items    []lineItemBody  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (h *Handler) cartResponse(items []cart.LineItem) cartBody {
	return cartBody{
		Items:    h.itemsToBody(items),
		Subtotal: cart.Subtotal(items),
	}
}

// userID returns the authenticated user set by the security middleware.
func userID(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
