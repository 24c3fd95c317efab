package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Tenant resolves the caller's tenant from the verified JWT claims. Every
// handler below this middleware reads tenant_id from the gin context; a
// request that reaches a handler without one is a bug, not a user error.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Claims not found"})
			c.Abort()
			return
		}

		jwtClaims := claims.(jwt.MapClaims)

		tenantID, ok := jwtClaims["tenant_id"].(string)
		if !ok || tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Tenant not found in token"})
			c.Abort()
			return
		}

		c.Set("tenant_id", tenantID)

		c.Next()
	}
}
