package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ownerKey is the gin context key holding the verified owner id.
const ownerKey = "classbuilder_owner"

// SetOwner stores the verified owner id in the gin context.
func SetOwner(c *gin.Context, owner string) {
	c.Set(ownerKey, owner)
}

// Owner returns the owner id stored by Middleware, or "" when absent.
func Owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// Middleware verifies the bearer token and stores the owner for handlers.
// Failed requests are aborted with 401 in the API response envelope.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, err := v.Verify(extractBearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthorized",
			})
			return
		}

		SetOwner(c, owner)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
