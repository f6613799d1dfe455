package clients

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/lyzr/flowrunner/common/sdk"
)

// MemoryObjectStore keeps blobs in memory. Used in development mode and
// tests, mirroring the Redis store's content-addressed behavior.
type MemoryObjectStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryObjectStore creates an empty in-memory object store
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		blobs: make(map[string][]byte),
	}
}

// WriteObject stores bytes and returns the blob handle
func (s *MemoryObjectStore) WriteObject(ctx context.Context, data []byte, mimeType, organizationID, executionID string) (sdk.BlobHandle, error) {
	id := fmt.Sprintf("sha256:%x", sha256.Sum256(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[id] = cp

	return sdk.BlobHandle{ID: id, MimeType: mimeType}, nil
}

// ReadObject retrieves bytes by blob handle
func (s *MemoryObjectStore) ReadObject(ctx context.Context, handle sdk.BlobHandle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[handle.ID]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", handle.ID)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Len returns the number of stored blobs (for tests)
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
