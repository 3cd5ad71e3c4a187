package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/workflow-scheduler/internal/metrics"
	"github.com/ErlanBelekov/workflow-scheduler/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

const errRateLimited = "Too many requests"

// RateLimit runs after Auth and spends one token of the caller's budget per
// request. Anonymous requests are keyed by client IP.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := UserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !limiter.TryAcquire(key) {
			metrics.RateLimitedTotal.Inc()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errRateLimited})
			return
		}
		c.Next()
	}
}
