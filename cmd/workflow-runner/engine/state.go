package engine

import (
	"github.com/lyzr/flowrunner/common/sdk"
)

// SkipInfo records why a node was not executed
type SkipInfo struct {
	Reason    string   `json:"reason"`
	BlockedBy []string `json:"blocked_by,omitempty"`
}

// ExecutionState accumulates per-node results over the life of one workflow
// instance. The coordinator owns it exclusively; concurrent node tasks only
// read it, results are applied serially between levels.
//
// Each node id lives in at most one of the three partitions (executed,
// skipped, errored). Status is never stored here: it is derived from the
// partitions on demand.
type ExecutionState struct {
	NodeOutputs   map[string]sdk.NodeRuntimeValues `json:"node_outputs"`
	ExecutedNodes map[string]bool                  `json:"executed_nodes"`
	SkippedNodes  map[string]SkipInfo              `json:"skipped_nodes"`
	NodeErrors    map[string]string                `json:"node_errors"`
	NodeUsage     map[string]int                   `json:"node_usage"`
}

// NewState creates an empty execution state
func NewState() *ExecutionState {
	return &ExecutionState{
		NodeOutputs:   make(map[string]sdk.NodeRuntimeValues),
		ExecutedNodes: make(map[string]bool),
		SkippedNodes:  make(map[string]SkipInfo),
		NodeErrors:    make(map[string]string),
		NodeUsage:     make(map[string]int),
	}
}

// Visited reports whether the node has landed in any partition
func (s *ExecutionState) Visited(nodeID string) bool {
	if s.ExecutedNodes[nodeID] {
		return true
	}
	if _, skipped := s.SkippedNodes[nodeID]; skipped {
		return true
	}
	_, errored := s.NodeErrors[nodeID]
	return errored
}

// VisitedCount returns the number of nodes in any partition
func (s *ExecutionState) VisitedCount() int {
	return len(s.ExecutedNodes) + len(s.SkippedNodes) + len(s.NodeErrors)
}

// TotalUsage sums the recorded usage across all nodes
func (s *ExecutionState) TotalUsage() int {
	total := 0
	for _, u := range s.NodeUsage {
		total += u
	}
	return total
}

// MarkExecuted moves a node into the executed partition with its outputs
func (s *ExecutionState) MarkExecuted(nodeID string, outputs sdk.NodeRuntimeValues, usage int) {
	s.ExecutedNodes[nodeID] = true
	if outputs == nil {
		outputs = sdk.NodeRuntimeValues{}
	}
	s.NodeOutputs[nodeID] = outputs
	s.NodeUsage[nodeID] = usage
}

// MarkSkipped moves a node into the skipped partition
func (s *ExecutionState) MarkSkipped(nodeID, reason string, blockedBy []string) {
	s.SkippedNodes[nodeID] = SkipInfo{Reason: reason, BlockedBy: blockedBy}
}

// MarkFailed moves a node into the errored partition, preserving the error
// text verbatim
func (s *ExecutionState) MarkFailed(nodeID, errMsg string, usage int) {
	s.NodeErrors[nodeID] = errMsg
	s.NodeUsage[nodeID] = usage
}
