package credits

import (
	"context"
	"fmt"

	redisWrapper "github.com/lyzr/flowrunner/common/redis"
	"github.com/lyzr/flowrunner/common/sdk"
	"github.com/redis/go-redis/v9"
)

// RedisGate answers the pre-execution quota question against per-organization
// credit balances kept in Redis, and records actual usage after the run.
type RedisGate struct {
	redis   *redisWrapper.Client
	logger  sdk.Logger
	devMode bool
}

// GateOpts contains options for creating a credit gate
type GateOpts struct {
	Redis   *redis.Client
	Logger  sdk.Logger
	DevMode bool
}

// NewRedisGate creates a new Redis-backed credit gate
func NewRedisGate(opts *GateOpts) *RedisGate {
	return &RedisGate{
		redis:   redisWrapper.NewClient(opts.Redis, opts.Logger),
		logger:  opts.Logger,
		devMode: opts.DevMode,
	}
}

// HasEnoughCredits checks the organization's remaining balance against the
// estimated cost. Development mode short-circuits to allowed.
func (g *RedisGate) HasEnoughCredits(ctx context.Context, check sdk.CreditCheck) (bool, error) {
	if g.devMode {
		g.logger.Debug("credit check short-circuited (dev mode)", "org_id", check.OrganizationID)
		return true, nil
	}

	balance, err := g.redis.GetInt64(ctx, balanceKey(check.OrganizationID))
	if err != nil {
		return false, fmt.Errorf("credit check failed: %w", err)
	}

	allowed := balance+check.OverageLimit >= int64(check.Estimated)
	if !allowed {
		g.logger.Warn("insufficient credits",
			"org_id", check.OrganizationID,
			"balance", balance,
			"estimated", check.Estimated,
			"overage_limit", check.OverageLimit)
	} else {
		g.logger.Debug("credit check passed",
			"org_id", check.OrganizationID,
			"balance", balance,
			"estimated", check.Estimated)
	}

	return allowed, nil
}

// RecordUsage debits the actual cumulative usage from the balance
func (g *RedisGate) RecordUsage(ctx context.Context, organizationID string, actual int) error {
	if actual <= 0 {
		return nil
	}

	remaining, err := g.redis.DecrBy(ctx, balanceKey(organizationID), int64(actual))
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	g.logger.Info("recorded usage",
		"org_id", organizationID,
		"usage", actual,
		"remaining", remaining)
	return nil
}

func balanceKey(organizationID string) string {
	return fmt.Sprintf("credits:balance:%s", organizationID)
}
