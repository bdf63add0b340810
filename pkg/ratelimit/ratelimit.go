package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/wonny/valuescreener/pkg/config"
	"github.com/wonny/valuescreener/pkg/redis"
)

// Limiter throttles outbound requests. It only delays; it never retries,
// drops or caches a request.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Local is an in-process token bucket
type Local struct {
	limiter *rate.Limiter
}

// NewLocal creates a token bucket limiter
func NewLocal(rps float64, burst int) *Local {
	if burst < 1 {
		burst = 1
	}
	return &Local{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available
func (l *Local) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// FromConfig picks the limiter for the screening API:
//   - API_RATE_LIMIT_RPS=0      → nil (no throttling)
//   - REDIS_ENABLED=true        → shared sliding window in Redis
//   - otherwise                 → local token bucket
func FromConfig(cfg *config.Config, rdb *redis.Client) Limiter {
	if cfg.API.RateLimitRPS <= 0 {
		return nil
	}
	if rdb != nil && rdb.Enabled() {
		return redis.NewRateLimiter(rdb, "valuescreener").
			Bind(redis.ScreeningAPIRateLimit(cfg.API.RateLimitRPS))
	}
	return NewLocal(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
}
