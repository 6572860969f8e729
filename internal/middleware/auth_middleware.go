package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/ArowuTest/crownbid-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slog"
)

// Context keys set by JWTAuthMiddleware
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

// JWTAuthMiddleware validates the bearer token and stores its claims in the
// request context
func JWTAuthMiddleware(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			slog.Warn("JWTAuthMiddleware: token rejected", "error", err, "path", c.FullPath())
			if errors.Is(err, jwtlib.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireOperator admits callers whose subject is on the allow-list or whose
// token carries the admin role. It must run after JWTAuthMiddleware.
func RequireOperator(allowed []string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, uid := range allowed {
		allow[uid] = struct{}{}
	}
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		_, listed := allow[uid]
		if !listed && c.GetString(ContextUserRole) != jwt.RoleAdmin {
			slog.Warn("RequireOperator: non-operator refused", "uid", uid, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized (admin only)"})
			return
		}
		c.Next()
	}
}

// CronSecretMiddleware checks the X-Cron-Secret header. An unset secret
// refuses every request.
func CronSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Cron-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized cron"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated subject, or "" before authentication
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
