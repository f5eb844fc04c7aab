package middleware

import (
	"errors"
	"net/http"
	"strings"

	"slabdesk/internal/auth"
	apierrors "slabdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	UserIDContextKey      = "user_id"
	UsernameContextKey    = "username"
	RoleContextKey        = "role"
	AccessTokenContextKey = "access_token"
)

// AuthMiddleware validates the bearer session token and exposes the caller's
// identity and raw token to handlers. The raw token is forwarded to the
// inventory API.
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			abortUnauthorized(c, "missing authorization header", "Header: Authorization")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			logger.Warn("Invalid authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			abortUnauthorized(c, "invalid authorization header format", "Expected: Bearer <token>")
			return
		}

		tokenString := parts[1]
		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "token expired", "Token has expired, please sign in again")
				return
			}
			logger.Warn("Invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
			abortUnauthorized(c, "invalid token", err.Error())
			return
		}

		c.Set(UserIDContextKey, claims.Subject)
		c.Set(UsernameContextKey, claims.Username)
		c.Set(RoleContextKey, claims.Role)
		c.Set(AccessTokenContextKey, tokenString)

		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleContextKey)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, apierrors.NewStandardError("Forbidden", "insufficient role", "Role: "+role))
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message, details string) {
	c.JSON(http.StatusUnauthorized, apierrors.NewStandardError("Unauthorized", message, details))
	c.Abort()
}
