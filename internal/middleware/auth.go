package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"caku/internal/security"
)

const claimsKey = "dashboard_claims"

// Authorizer reports whether a chat user still holds a live access token.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID string) (bool, error)
}

// Auth accepts a dashboard JWT from the Authorization header or, for links
// opened straight from the chat, the token query parameter.
func Auth(secret string, authz Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		claims, err := security.ParseDashboardToken(tokenStr, secret)
		if err != nil || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		ok, err := authz.IsAuthorized(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authorization_unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		c.Set(claimsKey, *claims)
		c.Next()
	}
}

// Claims returns the dashboard claims stored by Auth.
func Claims(c *gin.Context) (security.DashboardClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return security.DashboardClaims{}, false
	}
	claims, ok := v.(security.DashboardClaims)
	return claims, ok
}

func UserID(c *gin.Context) string {
	claims, _ := Claims(c)
	return claims.UserID
}
