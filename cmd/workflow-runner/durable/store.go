package durable

import (
	"context"
	"fmt"
	"sync"

	redisWrapper "github.com/lyzr/flowrunner/common/redis"
	"github.com/lyzr/flowrunner/common/sdk"
	"github.com/redis/go-redis/v9"
)

var (
	_ sdk.StepStore = (*RedisStepStore)(nil)
	_ sdk.StepStore = (*MemoryStepStore)(nil)
)

// RedisStepStore keeps memoized step results in a Redis hash per execution,
// one field per step name. HSETNX makes the first write win, so a concurrent
// duplicate of the same execution cannot overwrite a completed step.
type RedisStepStore struct {
	redis *redisWrapper.Client
}

// NewRedisStepStore creates a Redis-backed step store
func NewRedisStepStore(redisClient *redis.Client, logger sdk.Logger) *RedisStepStore {
	return &RedisStepStore{
		redis: redisWrapper.NewClient(redisClient, logger),
	}
}

func (s *RedisStepStore) GetStep(ctx context.Context, executionID, name string) ([]byte, bool, error) {
	val, found, err := s.redis.HGet(ctx, stepsKey(executionID), name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read step: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return []byte(val), true, nil
}

func (s *RedisStepStore) PutStep(ctx context.Context, executionID, name string, result []byte) error {
	if err := s.redis.HSetNX(ctx, stepsKey(executionID), name, string(result)); err != nil {
		return fmt.Errorf("failed to persist step: %w", err)
	}
	return nil
}

func stepsKey(executionID string) string {
	return fmt.Sprintf("steps:%s", executionID)
}

// MemoryStepStore is an in-memory step store for development mode and tests
type MemoryStepStore struct {
	mu    sync.RWMutex
	steps map[string][]byte
}

// NewMemoryStepStore creates an empty in-memory step store
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{
		steps: make(map[string][]byte),
	}
}

func (s *MemoryStepStore) GetStep(ctx context.Context, executionID, name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, found := s.steps[executionID+"/"+name]
	if !found {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (s *MemoryStepStore) PutStep(ctx context.Context, executionID, name string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionID + "/" + name
	// First write wins, matching the Redis HSETNX behavior
	if _, exists := s.steps[key]; exists {
		return nil
	}
	data := make([]byte, len(result))
	copy(data, result)
	s.steps[key] = data
	return nil
}

// Len returns the number of stored steps
func (s *MemoryStepStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}
