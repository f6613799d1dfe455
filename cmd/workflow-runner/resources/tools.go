package resources

import (
	"context"
	"fmt"

	"github.com/lyzr/flowrunner/common/sdk"
)

// ContextFactory builds an invocation context for a tool call. Supplied
// after construction: the factory closes over the provider, and the provider
// needs the catalogue, so the cycle is broken by binding late.
type ContextFactory func(ctx context.Context, nodeType string, inputs map[string]interface{}) (*sdk.InvocationContext, error)

// ToolCatalogue exposes invokable node types to nodes that orchestrate other
// nodes. Read-only after Bind.
type ToolCatalogue struct {
	registry    sdk.NodeRegistry
	types       []sdk.NodeTypeMeta
	makeContext ContextFactory
}

// NewToolCatalogue creates a catalogue over the given tool-capable types
func NewToolCatalogue(registry sdk.NodeRegistry, types []sdk.NodeTypeMeta) *ToolCatalogue {
	return &ToolCatalogue{
		registry: registry,
		types:    types,
	}
}

// Bind attaches the context factory. Must be called before any tool
// invocation.
func (c *ToolCatalogue) Bind(factory ContextFactory) {
	c.makeContext = factory
}

// ListTools returns the catalogue of invokable node types
func (c *ToolCatalogue) ListTools() []sdk.NodeTypeMeta {
	out := make([]sdk.NodeTypeMeta, len(c.types))
	copy(out, c.types)
	return out
}

// InvokeTool runs a node type directly with the given inputs
func (c *ToolCatalogue) InvokeTool(ctx context.Context, nodeType string, inputs map[string]interface{}) (*sdk.NodeResult, error) {
	if c.makeContext == nil {
		return nil, fmt.Errorf("tool catalogue not bound")
	}

	if _, registered := c.registry.GetNodeType(nodeType); !registered {
		return nil, fmt.Errorf("tool not found: %s", nodeType)
	}

	executable := c.registry.CreateExecutable(&sdk.Node{ID: "tool:" + nodeType, Type: nodeType})
	if executable == nil {
		return nil, fmt.Errorf("tool not implemented: %s", nodeType)
	}

	ic, err := c.makeContext(ctx, nodeType, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool context: %w", err)
	}

	return executable.Execute(ctx, ic)
}
