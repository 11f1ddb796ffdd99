package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/server/auth"
)

const claimsContextKey = "authClaims"

// requireAccessToken verifies the access token before any handler runs.
// The token is taken from the session cookie or, failing that, from an
// Authorization: Bearer header.
func (h *Handler) requireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(common.AccessTokenCookieName)
		if err != nil || token == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing access token"})
			return
		}

		claims, err := h.users.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// claimsFromContext returns the verified claims stored by the middleware.
// Only call it from handlers behind requireAccessToken.
func claimsFromContext(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsContextKey)
	claims, _ := v.(*auth.Claims)
	if claims == nil {
		// unreachable behind the middleware; fail closed anyway
		return &auth.Claims{}
	}
	return claims
}
