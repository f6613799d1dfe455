package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/codec"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/durable"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/invoker"
	"github.com/lyzr/flowrunner/common/sdk"
)

// NodeExecutionResult is the self-contained outcome of one node task. It is
// JSON-serializable because each node task is memoized as a durable step.
type NodeExecutionResult struct {
	NodeID     string                `json:"node_id"`
	Status     string                `json:"status"` // completed | error | skipped
	Outputs    sdk.NodeRuntimeValues `json:"outputs,omitempty"`
	Error      string                `json:"error,omitempty"`
	Usage      int                   `json:"usage"`
	SkipReason string                `json:"skip_reason,omitempty"`
	BlockedBy  []string              `json:"blocked_by,omitempty"`
}

// RunContext is the per-execution identity forwarded into node invocations
type RunContext struct {
	Workflow       *sdk.Workflow
	ExecutionID    string
	OrganizationID string
	DeploymentID   string
	CallerPlan     string
	Trigger        *sdk.Trigger
}

// LevelExecutor runs one level of the plan at a time: fan out all node tasks
// concurrently, fan in their results, apply them to the state serially.
type LevelExecutor struct {
	codec          *codec.Codec
	invoker        *invoker.Invoker
	logger         sdk.Logger
	maxParallelism int
}

// ExecutorOpts contains options for creating a level executor
type ExecutorOpts struct {
	Codec   *codec.Codec
	Invoker *invoker.Invoker
	Logger  sdk.Logger
	// MaxParallelism caps concurrent node tasks per level; 0 means unbounded
	MaxParallelism int
}

// NewLevelExecutor creates a new level executor
func NewLevelExecutor(opts *ExecutorOpts) *LevelExecutor {
	return &LevelExecutor{
		codec:          opts.Codec,
		invoker:        opts.Invoker,
		logger:         opts.Logger,
		maxParallelism: opts.MaxParallelism,
	}
}

// RunLevel concurrently executes every node in the level, each wrapped in a
// durable step named "run node {nodeId}". Node tasks only read the state;
// nothing is applied until all tasks return. Results come back sorted by
// node id so application order is deterministic.
func (e *LevelExecutor) RunLevel(ctx context.Context, runner *durable.Runner, rc *RunContext, level []string, state *ExecutionState) []NodeExecutionResult {
	results := make([]NodeExecutionResult, len(level))

	var sem chan struct{}
	if e.maxParallelism > 0 {
		sem = make(chan struct{}, e.maxParallelism)
	}

	var wg sync.WaitGroup
	for i, nodeID := range level {
		wg.Add(1)
		go func(i int, nodeID string) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			stepName := fmt.Sprintf("run node %s", nodeID)
			result, err := durable.Step(ctx, runner, stepName, func(ctx context.Context) (NodeExecutionResult, error) {
				return e.executeNode(ctx, rc, nodeID, state), nil
			})
			if err != nil {
				// Platform failure around the step itself; the node is
				// recorded as errored rather than aborting the workflow
				result = NodeExecutionResult{
					NodeID: nodeID,
					Status: sdk.NodeStatusError,
					Error:  err.Error(),
					Usage:  1,
				}
			}
			results[i] = result
		}(i, nodeID)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].NodeID < results[b].NodeID })
	return results
}

// ApplyResults moves each result's node into exactly one state partition.
// Called serially by the coordinator after the level fan-in.
func (e *LevelExecutor) ApplyResults(state *ExecutionState, results []NodeExecutionResult) {
	for _, r := range results {
		switch r.Status {
		case sdk.NodeStatusCompleted:
			state.MarkExecuted(r.NodeID, r.Outputs, r.Usage)
		case sdk.NodeStatusSkipped:
			state.MarkSkipped(r.NodeID, r.SkipReason, r.BlockedBy)
		default:
			state.MarkFailed(r.NodeID, r.Error, r.Usage)
		}
	}
}

// executeNode is the self-contained node task: classify, wire, decode,
// invoke, encode.
func (e *LevelExecutor) executeNode(ctx context.Context, rc *RunContext, nodeID string, state *ExecutionState) NodeExecutionResult {
	if decision := ClassifySkip(rc.Workflow, nodeID, state); decision.Skip {
		e.logger.Debug("node skipped",
			"node_id", nodeID,
			"reason", decision.Reason,
			"blocked_by", decision.BlockedBy)
		return NodeExecutionResult{
			NodeID:     nodeID,
			Status:     sdk.NodeStatusSkipped,
			SkipReason: decision.Reason,
			BlockedBy:  decision.BlockedBy,
		}
	}

	inputs := map[string]interface{}{}
	if node, found := rc.Workflow.FindNode(nodeID); found {
		wired := CollectInputs(rc.Workflow, node, state)
		decoded, err := e.codec.DecodeInputs(ctx, node, wired)
		if err != nil {
			return NodeExecutionResult{
				NodeID: nodeID,
				Status: sdk.NodeStatusError,
				Error:  err.Error(),
				Usage:  1,
			}
		}
		inputs = decoded
	}

	outcome := e.invoker.Invoke(ctx, invoker.Params{
		Workflow:       rc.Workflow,
		NodeID:         nodeID,
		Inputs:         inputs,
		ExecutionID:    rc.ExecutionID,
		OrganizationID: rc.OrganizationID,
		DeploymentID:   rc.DeploymentID,
		CallerPlan:     rc.CallerPlan,
		Trigger:        rc.Trigger,
	})
	if outcome.Failed() {
		return NodeExecutionResult{
			NodeID: nodeID,
			Status: sdk.NodeStatusError,
			Error:  outcome.Err,
			Usage:  outcome.Usage,
		}
	}

	node, _ := rc.Workflow.FindNode(nodeID)
	encoded, err := e.codec.EncodeOutputs(ctx, node, outcome.Outputs, rc.OrganizationID, rc.ExecutionID)
	if err != nil {
		return NodeExecutionResult{
			NodeID: nodeID,
			Status: sdk.NodeStatusError,
			Error:  err.Error(),
			Usage:  outcome.Usage,
		}
	}

	return NodeExecutionResult{
		NodeID:  nodeID,
		Status:  sdk.NodeStatusCompleted,
		Outputs: encoded,
		Usage:   outcome.Usage,
	}
}
