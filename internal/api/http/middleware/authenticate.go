// Package middleware holds the gin middleware shared by the HTTP
// routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avoronin/authd/internal/api/http/cookie"
	"github.com/avoronin/authd/internal/model"
)

const userIDKey = "authenticatedUserID"

// Authenticate validates the access credential and attaches the user ID
// to the request context. The access cookie is the primary transport; a
// Bearer header is accepted for non-browser clients.
func Authenticate(cookies *cookie.Transport, issuer model.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := cookies.ReadAccess(c.Request)
		if err != nil {
			raw = bearerToken(c)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		claims, err := issuer.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID set by Authenticate.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
