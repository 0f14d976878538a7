package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/constants"
)

// SetSessionCookie attaches the session token to the response.
// httpOnly + SameSite=Lax always; Secure only in production.
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.SessionCookieName,
		token,
		int(constants.SessionTokenTTL.Seconds()),
		"/",
		"",
		secure,
		true,
	)
}

// ClearSessionCookie expires the session cookie unconditionally.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.SessionCookieName,
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
