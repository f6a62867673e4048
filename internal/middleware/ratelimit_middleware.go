package middleware

import (
	"context"
	"net/http"
	"strconv"

	"committee-live/internal/redis"
	"committee-live/internal/transport/httpdto"
	committee_errors "committee-live/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ConnectLimiter decides whether an address may open another socket
type ConnectLimiter interface {
	AllowConnect(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// WebSocketRateLimitMiddleware limits websocket upgrade attempts per client IP
func WebSocketRateLimitMiddleware(limiter ConnectLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowConnect(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", committee_errors.CodeInternal))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("connection rate limit exceeded", committee_errors.CodeRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
