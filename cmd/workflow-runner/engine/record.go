package engine

import (
	"time"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/planner"
	"github.com/lyzr/flowrunner/common/sdk"
)

// Top-level error summaries. Per-node error text stays verbatim in the node
// entries; the record-level field is deliberately generic when node errors
// exist so operators read diagnostics per node.
const (
	ErrSummaryNodeFailures = "Workflow execution failed"
	ErrSummaryExhausted    = "Insufficient compute credits"
)

// RecordParams carries everything needed to build an execution record
type RecordParams struct {
	ExecutionID    string
	WorkflowID     string
	DeploymentID   string
	UserID         string
	OrganizationID string

	Workflow *sdk.Workflow
	// Plan is nil before planning succeeded; node order then falls back to
	// workflow declaration order.
	Plan  *planner.ExecutionPlan
	State *ExecutionState

	Exhausted bool
	TopError  string
	StartedAt time.Time
	EndedAt   *time.Time
	// Executing marks nodes currently in flight, for intermediate snapshots
	Executing map[string]bool
}

// BuildRecord assembles the external-facing snapshot of an execution. The
// same function serves intermediate monitoring snapshots and the final
// persisted record.
func BuildRecord(p RecordParams) *sdk.ExecutionRecord {
	record := &sdk.ExecutionRecord{
		ID:             p.ExecutionID,
		WorkflowID:     p.WorkflowID,
		DeploymentID:   p.DeploymentID,
		UserID:         p.UserID,
		OrganizationID: p.OrganizationID,
		Status:         recordStatus(p),
		StartedAt:      p.StartedAt,
		EndedAt:        p.EndedAt,
		Error:          errorSummary(p),
		NodeExecutions: nodeEntries(p),
	}
	return record
}

func recordStatus(p RecordParams) sdk.ExecutionStatus {
	if p.Exhausted {
		return sdk.StatusExhausted
	}
	if p.Plan == nil {
		if p.TopError != "" {
			return sdk.StatusError
		}
		return sdk.StatusSubmitted
	}
	status := DeriveStatus(p.Plan, p.State, false)
	// A coordinator-level failure is terminal even when not every node was
	// visited
	if p.TopError != "" && status == sdk.StatusExecuting && p.EndedAt != nil {
		return sdk.StatusError
	}
	return status
}

func errorSummary(p RecordParams) string {
	if p.Exhausted {
		return ErrSummaryExhausted
	}
	if len(p.State.NodeErrors) > 0 {
		return ErrSummaryNodeFailures
	}
	return p.TopError
}

func nodeEntries(p RecordParams) []sdk.NodeExecution {
	var order []string
	if p.Plan != nil {
		order = p.Plan.OrderedNodeIDs
	} else {
		for _, n := range p.Workflow.Nodes {
			order = append(order, n.ID)
		}
	}

	entries := make([]sdk.NodeExecution, 0, len(order))
	for _, nodeID := range order {
		entries = append(entries, nodeEntry(p, nodeID))
	}
	return entries
}

func nodeEntry(p RecordParams, nodeID string) sdk.NodeExecution {
	state := p.State

	if state.ExecutedNodes[nodeID] {
		return sdk.NodeExecution{
			NodeID:  nodeID,
			Status:  sdk.NodeStatusCompleted,
			Outputs: state.NodeOutputs[nodeID],
			Usage:   state.NodeUsage[nodeID],
		}
	}
	if errMsg, errored := state.NodeErrors[nodeID]; errored {
		return sdk.NodeExecution{
			NodeID: nodeID,
			Status: sdk.NodeStatusError,
			Error:  errMsg,
			Usage:  state.NodeUsage[nodeID],
		}
	}
	if info, skipped := state.SkippedNodes[nodeID]; skipped {
		return sdk.NodeExecution{
			NodeID:     nodeID,
			Status:     sdk.NodeStatusSkipped,
			SkipReason: info.Reason,
			BlockedBy:  info.BlockedBy,
		}
	}
	if p.Executing[nodeID] {
		return sdk.NodeExecution{NodeID: nodeID, Status: sdk.NodeStatusExecuting}
	}
	return sdk.NodeExecution{NodeID: nodeID, Status: sdk.NodeStatusIdle}
}
