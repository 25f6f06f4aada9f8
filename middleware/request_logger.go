package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one record per request through slog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []slog.Attr{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("uri", c.Request.URL.RequestURI()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("err", c.Errors.String()))
			slog.LogAttrs(context.Background(), slog.LevelError, "REQ_ERR", attrs...)
			return
		}
		slog.LogAttrs(context.Background(), slog.LevelInfo, "REQ", attrs...)
	}
}
