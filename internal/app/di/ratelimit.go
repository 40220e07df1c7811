package di

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"member_backend/internal/app/config"
	"member_backend/internal/platform/ratelimit"
)

// NewRateLimiter creates the limiter for the auth endpoints.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, rate limiting is disabled.
func NewRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig, log *zap.Logger) ratelimit.Limiter {
	if rdb == nil {
		log.Warn("Redis unavailable; auth rate limiting is disabled")
		return ratelimit.Disabled{}
	}
	return ratelimit.NewRedisLimiter(rdb, "ratelimit", cfg.Requests, cfg.Window)
}
