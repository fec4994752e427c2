package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/infrastructure/ratelimit"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimitConfig configures one fixed-window limit
type RateLimitConfig struct {
	// Name scopes the counter so routes with different limits don't share hits
	Name    string
	Limit   int
	Window  time.Duration
	Counter ratelimit.Counter
	// KeyFunc identifies the caller; defaults to the client IP
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit rejects callers that exceed cfg.Limit requests per cfg.Window
// with 429. Counter failures let the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limitHeader := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		key := cfg.Name + ":" + keyFunc(c)

		count, resetAt, err := cfg.Counter.Incr(c.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("rate limit counter unavailable, allowing request",
				zap.String("limit", cfg.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			retryAfter := int(math.Ceil(time.Until(resetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithHelp(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
				"Retry after "+strconv.Itoa(retryAfter)+" seconds",
			))
			return
		}

		c.Next()
	}
}
