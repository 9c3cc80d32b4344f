// Package middleware provides the HTTP cross-cutting concerns: bearer-token
// authentication, request logging, and Prometheus instrumentation.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/auth"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// Context keys populated for authenticated requests.
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// RequireAuth returns middleware that rejects requests without a valid
// bearer token and exposes the caller's identity on the gin context.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			return
		}

		claims, err := jwtManager.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the gin context.
// Only meaningful behind RequireAuth.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
