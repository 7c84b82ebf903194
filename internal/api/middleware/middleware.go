package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/logger"
)

// Logger returns a gin middleware for structured request logging using zap.
// Requests to quietPaths (probes and scrapes) are logged at debug level.
func Logger(quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		if _, ok := quiet[path]; ok && c.Writer.Status() < http.StatusInternalServerError {
			logger.Debug("Ops request", fields...)
			return
		}
		logger.Info("Ops request", fields...)
	}
}

// Recovery answers a handler panic with 500 and reports it at error level,
// which forwards it to sentry when configured
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.ErrorCtx(c.Request.Context(), fmt.Errorf("ops handler panic: %v", r),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Stack("stack"))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error"})
		}()
		c.Next()
	}
}
