package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avoronin/authd/internal/logger"
)

// Logging emits one structured line per request.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
