package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lyzr/flowrunner/common/sdk"
)

// MemoryExecutionStore keeps execution records in memory. Used in
// development mode and tests.
type MemoryExecutionStore struct {
	mu      sync.RWMutex
	records map[string]*sdk.ExecutionRecord
	saves   map[string]int
}

// NewMemoryExecutionStore creates an empty in-memory execution store
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{
		records: make(map[string]*sdk.ExecutionRecord),
		saves:   make(map[string]int),
	}
}

// Save upserts an execution record
func (s *MemoryExecutionStore) Save(ctx context.Context, record *sdk.ExecutionRecord) (*sdk.ExecutionRecord, error) {
	cp, err := cloneRecord(record)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = cp
	s.saves[record.ID]++

	return record, nil
}

// GetByID retrieves an execution record by its ID
func (s *MemoryExecutionStore) GetByID(ctx context.Context, id string) (*sdk.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	return cloneRecord(record)
}

// SaveCount reports how many times Save was called for an execution id
// (for exactly-once persistence tests)
func (s *MemoryExecutionStore) SaveCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[id]
}

func cloneRecord(record *sdk.ExecutionRecord) (*sdk.ExecutionRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	cp := &sdk.ExecutionRecord{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return cp, nil
}
