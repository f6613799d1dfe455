package invoker

import (
	"context"
	"fmt"

	"github.com/lyzr/flowrunner/common/sdk"
)

// PlanPolicy decides whether a caller's plan may use a subscription-gated
// node type. The plan taxonomy is application policy, injected by the host.
type PlanPolicy func(meta *sdk.NodeTypeMeta, callerPlan string) bool

// DefaultPlanPolicy gates subscription node types behind any non-empty,
// non-free plan.
func DefaultPlanPolicy(meta *sdk.NodeTypeMeta, callerPlan string) bool {
	if !meta.Subscription {
		return true
	}
	return callerPlan != "" && callerPlan != "free"
}

// Invoker resolves node types from the registry, builds invocation contexts
// through the resource provider and runs node code. All failures, including
// panics from node code, come back as error text on the outcome.
type Invoker struct {
	registry  sdk.NodeRegistry
	resources sdk.ResourceProvider
	policy    PlanPolicy
	logger    sdk.Logger
}

// Opts contains options for creating an invoker
type Opts struct {
	Registry  sdk.NodeRegistry
	Resources sdk.ResourceProvider
	Policy    PlanPolicy
	Logger    sdk.Logger
}

// New creates a new node invoker
func New(opts *Opts) *Invoker {
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPlanPolicy
	}
	return &Invoker{
		registry:  opts.Registry,
		resources: opts.Resources,
		policy:    policy,
		logger:    opts.Logger,
	}
}

// Params identifies one node invocation
type Params struct {
	Workflow       *sdk.Workflow
	NodeID         string
	Inputs         map[string]interface{}
	ExecutionID    string
	OrganizationID string
	DeploymentID   string
	CallerPlan     string
	Trigger        *sdk.Trigger
}

// Outcome is the classified result of an invocation. Exactly one of Outputs
// and Err is meaningful; Usage is charged in both cases.
type Outcome struct {
	Outputs map[string]interface{}
	Usage   int
	Err     string
}

// Failed reports whether the invocation errored
func (o *Outcome) Failed() bool {
	return o.Err != ""
}

// Invoke resolves and runs one node. Infrastructure failures that prevent
// the invocation from being attempted at all still come back as an Outcome
// with Err set: node-local errors never abort the workflow.
func (i *Invoker) Invoke(ctx context.Context, params Params) *Outcome {
	node, found := params.Workflow.FindNode(params.NodeID)
	if !found {
		return &Outcome{Err: "node not found", Usage: 1}
	}

	meta, registered := i.registry.GetNodeType(node.Type)
	if !registered {
		return &Outcome{Err: "node type not implemented", Usage: 1}
	}

	if !i.policy(meta, params.CallerPlan) {
		return &Outcome{Err: "subscription required", Usage: meta.UsageOrDefault()}
	}

	executable := i.registry.CreateExecutable(node)
	if executable == nil {
		return &Outcome{Err: "node type not implemented", Usage: meta.UsageOrDefault()}
	}

	ic, err := i.resources.CreateNodeContext(ctx, sdk.NodeContextParams{
		NodeID:         params.NodeID,
		WorkflowID:     params.Workflow.ID,
		ExecutionID:    params.ExecutionID,
		OrganizationID: params.OrganizationID,
		DeploymentID:   params.DeploymentID,
		Inputs:         params.Inputs,
		Trigger:        params.Trigger,
	})
	if err != nil {
		return &Outcome{
			Err:   fmt.Sprintf("failed to build node context: %v", err),
			Usage: meta.UsageOrDefault(),
		}
	}

	result, err := i.execute(ctx, executable, ic)
	if err != nil {
		return &Outcome{Err: err.Error(), Usage: meta.UsageOrDefault()}
	}

	usage := result.Usage
	if usage <= 0 {
		usage = meta.UsageOrDefault()
	}

	outputs := result.Outputs
	if outputs == nil {
		outputs = map[string]interface{}{}
	}
	return &Outcome{Outputs: outputs, Usage: usage}
}

// execute runs node code with panic recovery. Node authors do not get to
// crash the coordinator.
func (i *Invoker) execute(ctx context.Context, executable sdk.Invokable, ic *sdk.InvocationContext) (result *sdk.NodeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("node panicked",
				"node_id", ic.NodeID,
				"panic", r)
			err = fmt.Errorf("node panic: %v", r)
		}
	}()
	return executable.Execute(ctx, ic)
}
