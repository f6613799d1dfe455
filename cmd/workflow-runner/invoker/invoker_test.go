package invoker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowrunner/common/sdk"
)

// testLogger implements sdk.Logger
type testLogger struct {
	t *testing.T
}

func (l *testLogger) Info(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[INFO] %s %v", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[ERROR] %s %v", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[WARN] %s %v", msg, keysAndValues)
}

func (l *testLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[DEBUG] %s %v", msg, keysAndValues)
}

type fakeExecutable struct {
	fn func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error)
}

func (e *fakeExecutable) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	return e.fn(ctx, ic)
}

type fakeRegistry struct {
	types       map[string]*sdk.NodeTypeMeta
	executables map[string]sdk.Invokable
}

func (r *fakeRegistry) GetNodeType(nodeType string) (*sdk.NodeTypeMeta, bool) {
	meta, ok := r.types[nodeType]
	return meta, ok
}

func (r *fakeRegistry) CreateExecutable(node *sdk.Node) sdk.Invokable {
	return r.executables[node.Type]
}

type fakeResources struct {
	initErr    error
	contextErr error
}

func (p *fakeResources) Initialize(ctx context.Context, organizationID string) error {
	return p.initErr
}

func (p *fakeResources) CreateNodeContext(ctx context.Context, params sdk.NodeContextParams) (*sdk.InvocationContext, error) {
	if p.contextErr != nil {
		return nil, p.contextErr
	}
	return &sdk.InvocationContext{
		NodeID:         params.NodeID,
		WorkflowID:     params.WorkflowID,
		ExecutionID:    params.ExecutionID,
		OrganizationID: params.OrganizationID,
		DeploymentID:   params.DeploymentID,
		Inputs:         params.Inputs,
		Trigger:        params.Trigger,
	}, nil
}

func testWorkflow() *sdk.Workflow {
	return &sdk.Workflow{
		ID: "wf-1",
		Nodes: []sdk.Node{
			{ID: "n1", Type: "echo"},
			{ID: "n2", Type: "unregistered"},
			{ID: "n3", Type: "premium"},
		},
	}
}

func newTestInvoker(t *testing.T, registry *fakeRegistry, resources *fakeResources, policy PlanPolicy) *Invoker {
	return New(&Opts{
		Registry:  registry,
		Resources: resources,
		Policy:    policy,
		Logger:    &testLogger{t: t},
	})
}

func TestInvokeCompleted(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo"}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return &sdk.NodeResult{Outputs: map[string]interface{}{"out": ic.Inputs["in"]}}, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{
		Workflow:       testWorkflow(),
		NodeID:         "n1",
		Inputs:         map[string]interface{}{"in": "hello"},
		ExecutionID:    "exec-1",
		OrganizationID: "org-1",
	})

	require.False(t, outcome.Failed())
	assert.Equal(t, "hello", outcome.Outputs["out"])
	assert.Equal(t, 1, outcome.Usage)
}

func TestInvokeUsageFromMeta(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo", Usage: 5}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return &sdk.NodeResult{Outputs: map[string]interface{}{}}, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	assert.Equal(t, 5, outcome.Usage)
}

func TestInvokeUsageFromResult(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo", Usage: 5}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return &sdk.NodeResult{Outputs: map[string]interface{}{}, Usage: 3}, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	assert.Equal(t, 3, outcome.Usage)
}

func TestInvokeNodeNotFound(t *testing.T) {
	inv := newTestInvoker(t, &fakeRegistry{}, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "ghost"})
	require.True(t, outcome.Failed())
	assert.Equal(t, "node not found", outcome.Err)
}

func TestInvokeNodeTypeNotImplemented(t *testing.T) {
	inv := newTestInvoker(t, &fakeRegistry{types: map[string]*sdk.NodeTypeMeta{}}, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n2"})
	require.True(t, outcome.Failed())
	assert.Equal(t, "node type not implemented", outcome.Err)
}

func TestInvokeNilExecutable(t *testing.T) {
	// Registered metadata but no implementation behind it
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo"}},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	require.True(t, outcome.Failed())
	assert.Equal(t, "node type not implemented", outcome.Err)
}

func TestInvokeSubscriptionRequired(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"premium": {Type: "premium", Subscription: true}},
		executables: map[string]sdk.Invokable{
			"premium": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				t.Fatal("gated node must not execute")
				return nil, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n3", CallerPlan: "free"})
	require.True(t, outcome.Failed())
	assert.Equal(t, "subscription required", outcome.Err)
}

func TestInvokeSubscriptionAllowed(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"premium": {Type: "premium", Subscription: true}},
		executables: map[string]sdk.Invokable{
			"premium": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return &sdk.NodeResult{Outputs: map[string]interface{}{"ok": true}}, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n3", CallerPlan: "pro"})
	require.False(t, outcome.Failed())
	assert.Equal(t, true, outcome.Outputs["ok"])
}

func TestInvokeCustomPolicy(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"premium": {Type: "premium", Subscription: true}},
		executables: map[string]sdk.Invokable{
			"premium": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return &sdk.NodeResult{Outputs: map[string]interface{}{"ok": true}}, nil
			}},
		},
	}
	allowAll := func(meta *sdk.NodeTypeMeta, callerPlan string) bool { return true }
	inv := newTestInvoker(t, registry, &fakeResources{}, allowAll)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n3", CallerPlan: "free"})
	require.False(t, outcome.Failed())
	assert.Equal(t, true, outcome.Outputs["ok"])
}

func TestInvokeNodeError(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo"}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				return nil, errors.New("division by zero")
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	require.True(t, outcome.Failed())
	assert.Equal(t, "division by zero", outcome.Err)
	assert.Equal(t, 1, outcome.Usage)
}

func TestInvokePanicRecovered(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo"}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				panic("index out of range")
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	require.True(t, outcome.Failed())
	assert.Contains(t, outcome.Err, "node panic")
	assert.Contains(t, outcome.Err, "index out of range")
}

func TestInvokeContextBuildFailure(t *testing.T) {
	registry := &fakeRegistry{
		types: map[string]*sdk.NodeTypeMeta{"echo": {Type: "echo"}},
		executables: map[string]sdk.Invokable{
			"echo": &fakeExecutable{fn: func(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
				t.Fatal("node must not execute when the context cannot be built")
				return nil, nil
			}},
		},
	}
	inv := newTestInvoker(t, registry, &fakeResources{contextErr: errors.New("vault unavailable")}, nil)

	outcome := inv.Invoke(context.Background(), Params{Workflow: testWorkflow(), NodeID: "n1"})
	require.True(t, outcome.Failed())
	assert.Contains(t, outcome.Err, "vault unavailable")
}
