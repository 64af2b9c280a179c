package httpmiddleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/logger"
	"pdfrag/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries the trace id of a request.
	HeaderRequestID = "X-Request-ID"
	// HeaderAPIKey carries the client API key.
	HeaderAPIKey = "X-API-Key"

	loggerKey = "request_logger"
)

// RequestLogger attaches a request-scoped logger with a trace id and logs one line per request.
func RequestLogger(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Header(HeaderRequestID, traceID)

		reqLog := base.WithTraceID(traceID).WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
		c.Set(loggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		entry := reqLog.WithPayload(map[string]interface{}{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// LoggerFrom returns the request logger set by RequestLogger, or fallback.
func LoggerFrom(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return fallback
}

// APIKey rejects requests whose X-API-Key header does not match key. An empty key disables the check.
// Paths listed in public skip the check.
func APIKey(key string, public ...string) gin.HandlerFunc {
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if _, ok := open[c.FullPath()]; ok {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit is a middleware that applies a token bucket per client.
// Clients are identified by API key when present, otherwise by IP.
func RateLimit(limiter *ratelimiter.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too Many Requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CircuitBreak is a middleware that applies the circuit breaker pattern to the routes after it.
// It considers HTTP status codes >= 500 as failures.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := breaker.Execute(func() (interface{}, error) {
			c.Next()
			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return nil, fmt.Errorf("server error: status code %d", status)
			}
			return nil, nil
		})
		if err == circuitbreaker.ErrCircuitOpen {
			// When the circuit is open, prevent the request and return Service Unavailable.
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Service Unavailable: Circuit Breaker is open"})
			c.Abort()
		}
	}
}

// Timeout bounds the request context of the handlers after it. A non-positive d disables it.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
