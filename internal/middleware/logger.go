package middleware

import (
	"time"

	"github.com/Zachkp/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request through the site logger.
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := "%3d | %13v | %15s | %-7s %s"
		args := []interface{}{status, time.Since(start), c.ClientIP(), c.Request.Method, c.Request.URL.Path}
		switch {
		case status >= 500:
			logger.Error(line, args...)
		case status >= 400:
			logger.Warn(line, args...)
		default:
			logger.Info(line, args...)
		}
	}
}
