package engine

import (
	"github.com/lyzr/flowrunner/cmd/workflow-runner/planner"
	"github.com/lyzr/flowrunner/common/sdk"
)

// DeriveStatus computes the workflow status from the plan and the state
// partitions. This is the single source of truth for status; nothing in the
// engine stores a status field alongside the partitions. An earlier design
// did, and the stored field drifted out of sync with the counters.
//
// The submitted status is the pre-planning initial value and is emitted by
// the coordinator directly, never derived here.
func DeriveStatus(plan *planner.ExecutionPlan, state *ExecutionState, exhausted bool) sdk.ExecutionStatus {
	if exhausted {
		return sdk.StatusExhausted
	}

	if state.VisitedCount() < plan.NodeCount() {
		return sdk.StatusExecuting
	}

	if len(state.NodeErrors) > 0 {
		return sdk.StatusError
	}
	return sdk.StatusCompleted
}
