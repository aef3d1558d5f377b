package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter decides whether a caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func errorHandlingMiddleware(logger *slog.Logger, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}

		attrs := []any{"code", httpErr.Code, "status", httpErr.Status, "stage", httpErr.Stage, "path", c.Request.URL.Path, "error", httpErr.Err}
		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}

		body := gin.H{
			"success": false,
			"error":   message,
			"code":    httpErr.Code,
		}
		if httpErr.Stage != "" {
			body["stage"] = httpErr.Stage
		}
		if debug && httpErr.Err != nil {
			body["details"] = httpErr.Err.Error()
		}
		c.JSON(httpErr.Status, body)
	}
}

// rateLimitMiddleware admits requests per client IP. Limiter failures let
// the request through.
func rateLimitMiddleware(limiter RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			logger.Error("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, codeRateLimited, "too many requests, please slow down", nil))
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
		)
	}
}
