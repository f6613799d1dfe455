package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/flowrunner/common/sdk"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool  // Whether the request is allowed
	CurrentCount      int64 // Current count in the window
	Limit             int64 // The limit that was checked
	RetryAfterSeconds int64 // Seconds until the limit resets (0 if allowed)
}

// Limiter provides fixed-window rate limiting using Redis + Lua. The counter
// increment, expiry and comparison run as one atomic script so concurrent
// submissions cannot race past the limit.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	logger sdk.Logger
}

// NewLimiter creates a new rate limiter with the embedded Lua script
func NewLimiter(redisClient *redis.Client, logger sdk.Logger) *Limiter {
	return &Limiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckGlobalLimit checks the service-wide submission limit
func (l *Limiter) CheckGlobalLimit(ctx context.Context, limit int64, windowSec int) (*Result, error) {
	return l.checkLimit(ctx, "rate_limit:global", limit, windowSec)
}

// CheckOrganizationLimit checks the submission limit for one organization
func (l *Limiter) CheckOrganizationLimit(ctx context.Context, organizationID string, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:org:%s", organizationID)
	return l.checkLimit(ctx, key, limit, windowSec)
}

// checkLimit executes the rate limit Lua script
func (l *Limiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	result, err := l.script.Run(ctx, l.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		l.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Parse result array: {allowed, current_count, limit, retry_after}
	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	out := &Result{
		Allowed:           resultArray[0].(int64) == 1,
		CurrentCount:      resultArray[1].(int64),
		Limit:             resultArray[2].(int64),
		RetryAfterSeconds: resultArray[3].(int64),
	}

	if !out.Allowed {
		l.logger.Warn("rate limit exceeded",
			"key", key,
			"current", out.CurrentCount,
			"limit", limit,
			"retry_after", out.RetryAfterSeconds)
	} else {
		l.logger.Debug("rate limit check passed",
			"key", key,
			"current", out.CurrentCount,
			"limit", limit)
	}

	return out, nil
}

// ResetLimit clears a rate limit counter (for testing/admin)
func (l *Limiter) ResetLimit(ctx context.Context, key string) error {
	return l.redis.Del(ctx, key).Err()
}
