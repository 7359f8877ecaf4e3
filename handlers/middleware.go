package handlers

import (
	"net/http"
	"strings"

	"filenet-backend/models"
	"filenet-backend/service"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName carries the session token for browser clients.
	SessionCookieName = "filenet_session"

	userContextKey = "currentUser"
)

// RequireAuth authenticates the request from a bearer token or session
// cookie and stores the account on the context. Requests without a valid,
// active account are rejected before the handler runs.
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "AUTH_REQUIRED", "Authentication required")
			c.Abort()
			return
		}

		userID, err := auth.ParseToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired session")
			c.Abort()
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired session")
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAdmin rejects non-admin accounts. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			respondError(c, http.StatusForbidden, "ADMIN_REQUIRED", "You need administrator privileges to access this resource")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated account set by RequireAuth, or
// nil when the request is unauthenticated.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}
