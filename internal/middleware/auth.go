package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/admin"
	"github.com/playmatatu/royale/internal/config"
)

// AdminUserKey is the gin context key holding the authenticated operator's username.
const AdminUserKey = "admin_username"

// AdminAuth requires a valid operator bearer token.
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := admin.ParseToken(cfg.JWTSecret, strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(AdminUserKey, claims.Username)
		c.Next()
	}
}
