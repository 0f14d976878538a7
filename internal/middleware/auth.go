package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/auth"
	"github.com/ymatsuda/taskboard/internal/constants"
	apierrors "github.com/ymatsuda/taskboard/internal/errors"
)

// RequireAuth verifies the session cookie and stores the caller's identity
// in the request context. Missing, malformed, or expired tokens are all a
// 401; there is no refresh.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.TokenFromRequest(c.Request)
		if raw == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", false
	}

	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
