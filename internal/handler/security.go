package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solmarket/cart-api/internal/domain/auth"
)

// contextUserKey is the gin context key for the authenticated user ID.
const contextUserKey = "authUserID"

// Security authenticates requests via HMAC-SHA256 hashed API keys carried in
// the api_key header.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given API key repository and HMAC
// pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Required aborts with 401 unless the request carries a valid API key bound
// to a user.
func (s *Security) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := s.authenticate(c)
		if !ok || info.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: 401, Message: "unauthorized"})
			return
		}
		c.Set(contextUserKey, info.UserID)
		c.Next()
	}
}

// Optional authenticates when a key is present and lets anonymous requests
// through untouched. An invalid key is still rejected so a typo does not
// silently downgrade to guest.
func (s *Security) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("api_key") == "" {
			c.Next()
			return
		}
		info, ok := s.authenticate(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: 401, Message: "unauthorized"})
			return
		}
		c.Set(contextUserKey, info.UserID)
		c.Next()
	}
}

// authenticate computes the HMAC-SHA256 of the provided API key, looks it up,
// and performs a constant-time comparison to prevent timing attacks.
func (s *Security) authenticate(c *gin.Context) (*auth.APIKeyInfo, bool) {
	key := c.GetHeader("api_key")
	if key == "" {
		return nil, false
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(c.Request.Context(), hex.EncodeToString(hash))
	if err != nil {
		return nil, false
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, false
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, false
	}

	return info, true
}
