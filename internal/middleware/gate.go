// internal/middleware/gate.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"luckylogic-crm/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SecurityHeaders are set on every admitted response.
var SecurityHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=(), interest-cohort=()",
	"Content-Security-Policy": "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' https://fonts.googleapis.com; " +
		"font-src 'self' https://fonts.gstatic.com; " +
		"connect-src 'self'; " +
		"img-src 'self' blob: data:; " +
		"object-src 'self'; " +
		"base-uri 'self'; " +
		"form-action 'self'; " +
		"frame-ancestors 'none'; " +
		"block-all-mixed-content; " +
		"upgrade-insecure-requests",
}

// FailMode decides what happens when the counter store cannot be reached.
type FailMode string

const (
	FailOpen   FailMode = "open"
	FailClosed FailMode = "closed"
)

// Limiter is the sliding window seen by the gate.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (ratelimit.Result, error)
	Now() time.Time
}

type GateOptions struct {
	Limiter  Limiter
	FailMode FailMode
	// Stats is optional and best-effort.
	Stats  ratelimit.StatsRecorder
	Logger *zap.Logger
}

const fallbackIdentifier = "127.0.0.1"

// Gate rate limits every request by client IP and stamps the security
// headers on the ones it lets through. Rejections carry only Retry-After.
func Gate(opts GateOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = fallbackIdentifier
		}

		res, err := opts.Limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			if opts.FailMode == FailClosed {
				logger.Error("rate limiter unavailable, rejecting request", zap.String("ip", ip), zap.Error(err))
				applySecurityHeaders(c)
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
			logger.Warn("rate limiter unavailable, admitting request", zap.String("ip", ip), zap.Error(err))
			applySecurityHeaders(c)
			c.Next()
			return
		}

		recordDecision(c, opts.Stats, logger, ip, res.Allowed)

		if !res.Allowed {
			retryAfter := res.RetryAfter(opts.Limiter.Now())
			logger.Info("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
				zap.Int("retry_after", retryAfter),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Abort()
			c.String(http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		applySecurityHeaders(c)
		c.Next()
	}
}

func applySecurityHeaders(c *gin.Context) {
	for k, v := range SecurityHeaders {
		c.Header(k, v)
	}
}

func recordDecision(c *gin.Context, stats ratelimit.StatsRecorder, logger *zap.Logger, ip string, allowed bool) {
	if stats == nil {
		return
	}
	ev := ratelimit.Event{
		Identifier: ip,
		Allowed:    allowed,
		Method:     c.Request.Method,
		Path:       c.FullPath(),
		At:         time.Now(),
	}
	if err := stats.Record(c.Request.Context(), ev); err != nil {
		logger.Debug("rate limit stats not recorded", zap.Error(err))
	}
}
