package monitor

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lyzr/flowrunner/common/sdk"
)

// MemoryRecorder collects snapshots in memory. Used in development mode and
// tests that assert on the emitted snapshot sequence.
type MemoryRecorder struct {
	mu        sync.Mutex
	snapshots []*sdk.ExecutionRecord
}

// NewMemoryRecorder creates an empty snapshot recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// SendUpdate records a deep copy of the snapshot
func (r *MemoryRecorder) SendUpdate(ctx context.Context, sessionID string, record *sdk.ExecutionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	cp := &sdk.ExecutionRecord{}
	if err := json.Unmarshal(data, cp); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, cp)
	return nil
}

// Snapshots returns the recorded snapshots in emission order
func (r *MemoryRecorder) Snapshots() []*sdk.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*sdk.ExecutionRecord, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}
