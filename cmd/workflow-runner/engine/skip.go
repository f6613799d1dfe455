package engine

import (
	"github.com/lyzr/flowrunner/common/sdk"
)

// SkipDecision is the outcome of classifying one node before invocation
type SkipDecision struct {
	Skip      bool
	Reason    string
	BlockedBy []string
}

// ClassifySkip decides whether a node must be skipped given upstream
// outcomes. A node is skipped iff it has at least one inbound edge and every
// inbound edge is unavailable. An edge s->t is unavailable when s errored,
// s was skipped, or s completed without emitting the referenced output port
// (the conditional-branch case).
//
// Reason classification: upstream_failure wins whenever any unavailable edge
// traces back to an errored or skipped source; conditional_branch only when
// every unavailable edge is a non-emitted branch.
func ClassifySkip(workflow *sdk.Workflow, nodeID string, state *ExecutionState) SkipDecision {
	inbound := workflow.InboundEdges(nodeID)
	if len(inbound) == 0 {
		return SkipDecision{}
	}

	var failedSources []string
	var branchSources []string
	seen := make(map[string]bool)
	unavailable := 0

	for _, edge := range inbound {
		if _, errored := state.NodeErrors[edge.Source]; errored {
			unavailable++
			if !seen[edge.Source] {
				seen[edge.Source] = true
				failedSources = append(failedSources, edge.Source)
			}
			continue
		}
		if _, skipped := state.SkippedNodes[edge.Source]; skipped {
			unavailable++
			if !seen[edge.Source] {
				seen[edge.Source] = true
				failedSources = append(failedSources, edge.Source)
			}
			continue
		}
		if state.ExecutedNodes[edge.Source] {
			if _, emitted := state.NodeOutputs[edge.Source][edge.SourceOutput]; !emitted {
				unavailable++
				if !seen[edge.Source] {
					seen[edge.Source] = true
					branchSources = append(branchSources, edge.Source)
				}
			}
		}
	}

	if unavailable < len(inbound) {
		return SkipDecision{}
	}

	if len(failedSources) > 0 {
		return SkipDecision{Skip: true, Reason: sdk.SkipReasonUpstreamFailure, BlockedBy: failedSources}
	}
	return SkipDecision{Skip: true, Reason: sdk.SkipReasonConditionalBranch, BlockedBy: branchSources}
}
