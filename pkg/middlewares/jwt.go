package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
)

// Context keys set by JWTAuth.
const (
	KeySub   = "sub"
	KeyRole  = "role"
	KeyEmail = "email"
)

func JWTAuth(s *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(h, "Bearer ")
		claims, err := s.ParseValidate(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(KeySub, claims.Sub)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyEmail, claims.Email)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(KeyRole)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Identity returns the authenticated subject and role placed by JWTAuth.
func Identity(c *gin.Context) (sub, role string) {
	return c.GetString(KeySub), c.GetString(KeyRole)
}
