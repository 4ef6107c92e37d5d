package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pagelift/pagelift-backend/internal/http/response"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/services"
)

const ClaimsKey = "auth_claims"

var errNotFound = errors.New("not found")

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth verifies the bearer token and stashes its claims on the gin
// context. Failures answer 404: admin and preview routes must not reveal
// their existence to unauthenticated callers.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			c.Abort()
			response.RespondError(c, http.StatusNotFound, "not_found", errNotFound)
			return
		}
		claims, err := am.authService.Verify(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.Abort()
			response.RespondError(c, http.StatusNotFound, "not_found", errNotFound)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ExtractToken reads the bearer token from the Authorization header, with a
// query-parameter fallback for preview links.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}

// Claims returns the verified claims set by RequireAuth, or nil.
func Claims(c *gin.Context) *services.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*services.Claims)
	return claims
}
