package credits

import (
	"context"
	"sync"

	"github.com/lyzr/flowrunner/common/sdk"
)

// MemoryGate is an in-memory credit gate for development mode and tests.
type MemoryGate struct {
	mu       sync.Mutex
	balances map[string]int64
	usage    map[string]int
	// Deny forces the next checks to fail regardless of balance
	Deny bool
	// lastCheck holds the most recent quota question, for assertions
	lastCheck sdk.CreditCheck
}

// NewMemoryGate creates a gate with the given starting balances. A nil map
// means every organization starts with an unlimited balance.
func NewMemoryGate(balances map[string]int64) *MemoryGate {
	return &MemoryGate{
		balances: balances,
		usage:    make(map[string]int),
	}
}

// HasEnoughCredits checks the in-memory balance
func (g *MemoryGate) HasEnoughCredits(ctx context.Context, check sdk.CreditCheck) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastCheck = check
	if g.Deny {
		return false, nil
	}
	if g.balances == nil {
		return true, nil
	}
	return g.balances[check.OrganizationID]+check.OverageLimit >= int64(check.Estimated), nil
}

// RecordUsage debits the balance and tracks cumulative usage
func (g *MemoryGate) RecordUsage(ctx context.Context, organizationID string, actual int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.usage[organizationID] += actual
	if g.balances != nil {
		g.balances[organizationID] -= int64(actual)
	}
	return nil
}

// LastCheck returns the most recent check request the gate received
func (g *MemoryGate) LastCheck() sdk.CreditCheck {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCheck
}

// RecordedUsage returns the cumulative usage recorded for an organization
func (g *MemoryGate) RecordedUsage(organizationID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage[organizationID]
}
