package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDHeader  = "X-User-ID"
	sessionCookie = "storefront_session"

	// ContextUserIDKey is the gin context key for the authenticated user ID
	ContextUserIDKey = "user_id"
	// ContextSessionIDKey is the gin context key for the session ID
	ContextSessionIDKey = "session_id"

	sessionMaxAge = 30 * 24 * time.Hour
)

// Session resolves the session owner for each request. An authenticated
// storefront forwards the user through the X-User-ID header; anonymous
// visitors get a UUID session cookie issued on first contact.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader(userIDHeader); userID != "" {
			c.Set(ContextUserIDKey, userID)
		}

		sessionID, err := c.Cookie(sessionCookie)
		if err != nil || sessionID == "" {
			sessionID = uuid.New().String()
			c.SetCookie(sessionCookie, sessionID, int(sessionMaxAge.Seconds()), "/", "", false, true)
		}
		c.Set(ContextSessionIDKey, sessionID)

		c.Next()
	}
}

// GetUserIDFromContext returns the authenticated user ID, if any
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// GetSessionIDFromContext returns the session ID issued for the request
func GetSessionIDFromContext(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(ContextSessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok && id != ""
}
