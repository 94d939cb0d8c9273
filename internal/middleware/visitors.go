package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// VisitorRecorder stores one page view.
type VisitorRecorder func(clientIP, userAgent, path string)

var untrackedPrefixes = []string{
	"/static/",
	"/images/",
	"/admin/",
	"/favicon",
	"/privacy",
	"/healthz",
}

// VisitorTracking records page views through record in the
// background. Static assets, admin pages and clients sending DNT are
// skipped.
func VisitorTracking(record VisitorRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != "GET" || !tracked(path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		go record(c.ClientIP(), c.GetHeader("User-Agent"), path)
		c.Next()
	}
}

func tracked(path string) bool {
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
