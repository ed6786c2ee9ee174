package middleware

import (
	"log/slog"
	"time"

	"github.com/Jeremieon/todo-api-cicd/internal/logger"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one line per request; 4xx at warn, 5xx at error.
func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		ctx := c.Request.Context()
		logger.FromContext(ctx, log).Log(ctx, level, "request completed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start).String(),
			"bytes", c.Writer.Size(),
			"ip", c.ClientIP(),
		)
	}
}
