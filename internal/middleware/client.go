package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ClientCookie carries the browser's anonymous client ID.
	ClientCookie = "client_id"
	// ContextKeyClientID is where ClientID stores the ID for handlers.
	ContextKeyClientID = "clientID"

	clientCookieMaxAge = 365 * 24 * 3600
)

// ClientID issues a random client ID cookie on first visit and exposes
// it to handlers under ContextKeyClientID.
func ClientID(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ClientCookie, id, clientCookieMaxAge, "/", "", secure, true)
		}
		c.Set(ContextKeyClientID, id)
		c.Next()
	}
}

// GetClientID returns the ID set by ClientID.
func GetClientID(c *gin.Context) string {
	return c.GetString(ContextKeyClientID)
}
