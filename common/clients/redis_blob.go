package clients

import (
	"context"
	"crypto/sha256"
	"fmt"

	redisWrapper "github.com/lyzr/flowrunner/common/redis"
	"github.com/lyzr/flowrunner/common/sdk"
	"github.com/redis/go-redis/v9"
)

// RedisObjectStore stores binary parameter values in Redis, content-addressed
// by SHA256. Objects are immutable after write, so repeated writes of the
// same bytes are idempotent by construction.
type RedisObjectStore struct {
	redis  *redisWrapper.Client
	logger sdk.Logger
}

// NewRedisObjectStore creates a new Redis-backed object store
func NewRedisObjectStore(redisClient *redis.Client, logger sdk.Logger) *RedisObjectStore {
	return &RedisObjectStore{
		redis:  redisWrapper.NewClient(redisClient, logger),
		logger: logger,
	}
}

// WriteObject stores bytes and returns the blob handle
func (s *RedisObjectStore) WriteObject(ctx context.Context, data []byte, mimeType, organizationID, executionID string) (sdk.BlobHandle, error) {
	id := fmt.Sprintf("sha256:%x", sha256.Sum256(data))
	key := blobKey(id)

	// No expiry: blobs live for the workflow instance and beyond
	if err := s.redis.SetWithExpiry(ctx, key, string(data), 0); err != nil {
		s.logger.Error("failed to store blob", "blob_id", id, "org_id", organizationID, "error", err)
		return sdk.BlobHandle{}, fmt.Errorf("failed to store blob: %w", err)
	}

	s.logger.Debug("stored blob", "blob_id", id, "size", len(data), "mime_type", mimeType)
	return sdk.BlobHandle{ID: id, MimeType: mimeType}, nil
}

// ReadObject retrieves bytes by blob handle
func (s *RedisObjectStore) ReadObject(ctx context.Context, handle sdk.BlobHandle) ([]byte, error) {
	data, err := s.redis.Get(ctx, blobKey(handle.ID))
	if err != nil {
		s.logger.Warn("blob not found", "blob_id", handle.ID)
		return nil, fmt.Errorf("blob not found: %s", handle.ID)
	}

	s.logger.Debug("retrieved blob", "blob_id", handle.ID, "size", len(data))
	return []byte(data), nil
}

func blobKey(id string) string {
	return fmt.Sprintf("blob:%s", id)
}
