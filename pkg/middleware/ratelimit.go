package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/pkg/config"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/ratelimit"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 按客户端 IP 限流，scope 用于区分不同接口组
func RateLimitMiddleware(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig, scope string) gin.HandlerFunc {
	limit := ratelimit.PerSecond(cfg.QPS, cfg.Burst)

	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), ratelimit.Key(scope, c.ClientIP()), limit)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "Rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second)+1, 10))
			response.Abort(c, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		c.Next()
	}
}
