package resources

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

type countingSecrets struct {
	loads   int
	secrets map[string]string
}

func (s *countingSecrets) LoadSecrets(ctx context.Context, organizationID string) (map[string]string, error) {
	s.loads++
	return s.secrets, nil
}

func TestInitializeLoadsOnce(t *testing.T) {
	source := &countingSecrets{secrets: map[string]string{"api-key": "sk-1"}}
	p := NewProvider(&Opts{Secrets: source, Logger: &testLogger{t: t}})

	require.NoError(t, p.Initialize(context.Background(), "org-1"))
	require.NoError(t, p.Initialize(context.Background(), "org-1"))
	assert.Equal(t, 1, source.loads)
}

func TestGetSecret(t *testing.T) {
	p := NewProvider(&Opts{
		Secrets: StaticSecrets{"api-key": "sk-1"},
		Logger:  &testLogger{t: t},
	})
	require.NoError(t, p.Initialize(context.Background(), "org-1"))

	ic, err := p.CreateNodeContext(context.Background(), sdk.NodeContextParams{NodeID: "n1"})
	require.NoError(t, err)

	value, err := ic.GetSecret(context.Background(), "api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-1", value)

	_, err = ic.GetSecret(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret not found")
}

func TestGetIntegration(t *testing.T) {
	p := NewProvider(&Opts{
		Integrations: StaticIntegrations{
			"slack-1": {ID: "slack-1", Provider: "slack", AccessToken: "xoxb"},
		},
		Logger: &testLogger{t: t},
	})
	require.NoError(t, p.Initialize(context.Background(), "org-1"))

	ic, err := p.CreateNodeContext(context.Background(), sdk.NodeContextParams{NodeID: "n1"})
	require.NoError(t, err)

	integration, err := ic.GetIntegration(context.Background(), "slack-1")
	require.NoError(t, err)
	assert.Equal(t, "slack", integration.Provider)

	_, err = ic.GetIntegration(context.Background(), "missing")
	assert.Error(t, err)
}

type staticRegistry struct {
	meta *sdk.NodeTypeMeta
	exec sdk.Invokable
}

func (r *staticRegistry) GetNodeType(nodeType string) (*sdk.NodeTypeMeta, bool) {
	if r.meta != nil && r.meta.Type == nodeType {
		return r.meta, true
	}
	return nil, false
}

func (r *staticRegistry) CreateExecutable(node *sdk.Node) sdk.Invokable {
	return r.exec
}

type echoTool struct{}

func (echoTool) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	return &sdk.NodeResult{Outputs: map[string]interface{}{"echo": ic.Inputs["value"]}}, nil
}

func TestToolCatalogueInvoke(t *testing.T) {
	registry := &staticRegistry{
		meta: &sdk.NodeTypeMeta{Type: "echo"},
		exec: echoTool{},
	}
	catalogue := NewToolCatalogue(registry, []sdk.NodeTypeMeta{{Type: "echo"}})

	// Unbound catalogues refuse invocation
	_, err := catalogue.InvokeTool(context.Background(), "echo", nil)
	require.Error(t, err)

	catalogue.Bind(func(ctx context.Context, nodeType string, inputs map[string]interface{}) (*sdk.InvocationContext, error) {
		return &sdk.InvocationContext{Inputs: inputs}, nil
	})

	result, err := catalogue.InvokeTool(context.Background(), "echo", map[string]interface{}{"value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Outputs["echo"])

	_, err = catalogue.InvokeTool(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestProviderToolWiring(t *testing.T) {
	p := NewProvider(&Opts{Logger: &testLogger{t: t}})
	registry := &staticRegistry{meta: &sdk.NodeTypeMeta{Type: "echo"}, exec: echoTool{}}
	catalogue := NewToolCatalogue(registry, []sdk.NodeTypeMeta{{Type: "echo"}})

	// Two-phase: catalogue gets a factory over the provider, provider gets
	// the finished catalogue
	catalogue.Bind(func(ctx context.Context, nodeType string, inputs map[string]interface{}) (*sdk.InvocationContext, error) {
		return p.CreateNodeContext(ctx, sdk.NodeContextParams{NodeID: "tool:" + nodeType, Inputs: inputs})
	})
	p.SetToolRegistry(catalogue)

	require.NoError(t, p.Initialize(context.Background(), "org-1"))
	ic, err := p.CreateNodeContext(context.Background(), sdk.NodeContextParams{NodeID: "agent"})
	require.NoError(t, err)
	require.NotNil(t, ic.Tools)

	tools := ic.Tools.ListTools()
	require.Len(t, tools, 1)

	result, err := ic.Tools.InvokeTool(context.Background(), "echo", map[string]interface{}{"value": 7})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Outputs["echo"])
}

type failingSecrets struct{}

func (failingSecrets) LoadSecrets(ctx context.Context, organizationID string) (map[string]string, error) {
	return nil, errors.New("vault unavailable")
}

func TestInitializeFailure(t *testing.T) {
	p := NewProvider(&Opts{Secrets: failingSecrets{}, Logger: &testLogger{t: t}})

	err := p.Initialize(context.Background(), "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault unavailable")
}
