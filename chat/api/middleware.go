package api

import (
	"net/http"
	"strings"

	"flight-tracker-chat/backend/chat/service"

	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the caller's signed session credential from
// the session cookie or an Authorization bearer header. A missing or
// invalid credential is not an error at this layer; the request simply
// proceeds unauthenticated and route guards decide.
func SessionMiddleware(sessions *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, _ := c.Cookie(cookieName)
		if credential == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				credential = strings.TrimPrefix(header, "Bearer ")
			}
		}

		if sessionID, ok := sessions.Resolve(credential); ok {
			c.Set("sessionID", sessionID)
		}
		c.Next()
	}
}

// RequireSession guards routes that need an authenticated caller. The
// SESSION_REQUIRED code tells the client to bootstrap a session and retry.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("sessionID") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "SESSION_REQUIRED",
					"message": "A session is required for this request",
				},
			})
			return
		}
		c.Next()
	}
}
