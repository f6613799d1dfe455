package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	redisWrapper "github.com/lyzr/flowrunner/common/redis"
	"github.com/lyzr/flowrunner/common/sdk"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes execution snapshots over Redis pub/sub. Listeners
// subscribe to workflow:events:{sessionID} to stream progress to clients.
type RedisPublisher struct {
	redis  *redisWrapper.Client
	logger sdk.Logger
}

// NewRedisPublisher creates a new Redis-backed monitoring publisher
func NewRedisPublisher(redisClient *redis.Client, logger sdk.Logger) *RedisPublisher {
	return &RedisPublisher{
		redis:  redisWrapper.NewClient(redisClient, logger),
		logger: logger,
	}
}

// SendUpdate publishes a snapshot to the session's channel. Best-effort:
// callers log failures and continue.
func (p *RedisPublisher) SendUpdate(ctx context.Context, sessionID string, record *sdk.ExecutionRecord) error {
	if sessionID == "" {
		// No listener registered for this execution
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	channel := fmt.Sprintf("workflow:events:%s", sessionID)
	if err := p.redis.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	p.logger.Debug("published snapshot",
		"channel", channel,
		"execution_id", record.ID,
		"status", record.Status)
	return nil
}
