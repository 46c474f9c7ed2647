package middleware

import (
	"net/http"
	"strconv"

	"tillkeeper/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter builds an in-memory per-IP limiter from a formatted rate
// such as "1000-M" (1000 requests per minute).
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit rejects requests from an IP that has exhausted its quota.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		lctx, err := l.Get(c.Request.Context(), ip)
		if err != nil {
			// Fail open.
			log.Error().Err(err).Str("ip", ip).Msg("rate limiter lookup failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		if lctx.Reached {
			log.Warn().Str("ip", ip).Int64("limit", lctx.Limit).Msg("rate limit exceeded")
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}
