package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"harmony/internal/auth"
)

// userIDKey is the gin context key RequireAuth stores the caller id under.
const userIDKey = "auth.user_id"

// RequireAuth verifies the bearer token and stores the caller's user id on
// the request context. Websocket upgrades cannot set headers, so a token
// query parameter is accepted as a fallback.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		userID, err := auth.ParseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller set by RequireAuth.
func CurrentUserID(c *gin.Context) uint64 {
	id, _ := c.Get(userIDKey)
	userID, _ := id.(uint64)
	return userID
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}
