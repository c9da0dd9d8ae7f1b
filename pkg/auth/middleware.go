package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/models"
)

const identityKey = "identity"

// Identity is what the guards leave on the gin context for handlers.
type Identity struct {
	UserID string
	Role   string
	Name   string
	Login  string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// extractToken strips the "Bearer " prefix from the authorization header
func extractToken(authHeader string) string {
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := tokens.Parse(extractToken(authHeader))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(identityKey, Identity{UserID: claims.UserID, Role: claims.Role, Name: claims.Name, Login: claims.Login})
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if id.Role != role {
			abort(c, http.StatusForbidden, "Insufficient permissions: requires "+role+" role")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
