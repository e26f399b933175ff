package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-provider request budget using a token bucket,
// protecting the cloud OCR quotas during watch-mode runs that process many
// captures back to back.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerMin calls per
// minute. A requestsPerMin of 0 means unlimited.
func NewRateLimiter(requestsPerMin int) *RateLimiter {
	rl := &RateLimiter{}
	if requestsPerMin > 0 {
		r := rate.Limit(float64(requestsPerMin) / 60.0)
		rl.limiter = rate.NewLimiter(r, requestsPerMin)
	}
	return rl
}

// Wait blocks until the next request is allowed or the context is done.
// Returns nil immediately when rate limiting is disabled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}
