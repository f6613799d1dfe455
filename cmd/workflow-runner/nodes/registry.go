package nodes

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/condition"
	"github.com/lyzr/flowrunner/common/sdk"
)

// Factory builds an executable instance for one node. The node definition is
// passed so implementations can honor per-node port declarations (required
// flags, custom port names).
type Factory func(node *sdk.Node) sdk.Invokable

// Registry holds the builtin node types plus any host-registered extensions.
// Implements sdk.NodeRegistry.
type Registry struct {
	types     map[string]*sdk.NodeTypeMeta
	factories map[string]Factory
	order     []string
}

// NewRegistry creates a registry with all builtin node types registered
func NewRegistry(evaluator *condition.Evaluator) *Registry {
	r := &Registry{
		types:     make(map[string]*sdk.NodeTypeMeta),
		factories: make(map[string]Factory),
	}
	registerBuiltins(r, evaluator)
	return r
}

// Register adds a node type. Later registrations replace earlier ones.
func (r *Registry) Register(meta *sdk.NodeTypeMeta, factory Factory) {
	if _, exists := r.types[meta.Type]; !exists {
		r.order = append(r.order, meta.Type)
	}
	r.types[meta.Type] = meta
	r.factories[meta.Type] = factory
}

// GetNodeType resolves a node type's metadata
func (r *Registry) GetNodeType(nodeType string) (*sdk.NodeTypeMeta, bool) {
	meta, ok := r.types[nodeType]
	return meta, ok
}

// CreateExecutable builds an executable for the node, or nil when the type
// has no implementation
func (r *Registry) CreateExecutable(node *sdk.Node) sdk.Invokable {
	factory, ok := r.factories[node.Type]
	if !ok {
		return nil
	}
	return factory(node)
}

// Types returns all registered node type metas in registration order
func (r *Registry) Types() []sdk.NodeTypeMeta {
	out := make([]sdk.NodeTypeMeta, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, *r.types[t])
	}
	return out
}

func registerBuiltins(r *Registry, evaluator *condition.Evaluator) {
	numberPorts := []sdk.Port{{Name: "value", Type: "number"}}
	r.Register(&sdk.NodeTypeMeta{Type: "number", Inputs: numberPorts, Outputs: numberPorts},
		func(node *sdk.Node) sdk.Invokable { return &valueNode{} })

	stringPorts := []sdk.Port{{Name: "value", Type: "string"}}
	r.Register(&sdk.NodeTypeMeta{Type: "string", Inputs: stringPorts, Outputs: stringPorts},
		func(node *sdk.Node) sdk.Invokable { return &valueNode{} })

	mathInputs := []sdk.Port{
		{Name: "a", Type: "number", Required: true},
		{Name: "b", Type: "number", Required: true},
	}
	mathOutputs := []sdk.Port{{Name: "result", Type: "number"}}
	for op, fn := range mathOps {
		op := op
		fn := fn
		r.Register(&sdk.NodeTypeMeta{Type: op, Inputs: mathInputs, Outputs: mathOutputs},
			func(node *sdk.Node) sdk.Invokable { return &mathNode{op: op, fn: fn} })
	}

	r.Register(&sdk.NodeTypeMeta{
		Type: "condition",
		Inputs: []sdk.Port{
			{Name: "input", Type: "object"},
			{Name: "expression", Type: "string", Required: true},
		},
		Outputs: []sdk.Port{
			{Name: "true", Type: "object"},
			{Name: "false", Type: "object"},
		},
	}, func(node *sdk.Node) sdk.Invokable { return &conditionNode{evaluator: evaluator} })

	r.Register(&sdk.NodeTypeMeta{
		Type: "transform",
		Inputs: []sdk.Port{
			{Name: "input", Type: "object", Required: true},
			{Name: "patch", Type: "array", Required: true},
		},
		Outputs: []sdk.Port{{Name: "result", Type: "object"}},
	}, func(node *sdk.Node) sdk.Invokable { return &transformNode{} })

	r.Register(&sdk.NodeTypeMeta{
		Type: "pick",
		Inputs: []sdk.Port{
			{Name: "input", Type: "object", Required: true},
			{Name: "path", Type: "string", Required: true},
		},
		Outputs: []sdk.Port{{Name: "result", Type: "object"}},
	}, func(node *sdk.Node) sdk.Invokable { return &pickNode{} })

	r.Register(&sdk.NodeTypeMeta{
		Type: "merge",
		Inputs: []sdk.Port{
			{Name: "items", Type: "object", Repeated: true},
		},
		Outputs: []sdk.Port{{Name: "result", Type: "object"}},
	}, func(node *sdk.Node) sdk.Invokable { return &mergeNode{} })
}

// requireInput fetches a required input value, matching the error shape
// nodes report when an upstream edge never delivered
func requireInput(inputs map[string]interface{}, name string) (interface{}, error) {
	value, present := inputs[name]
	if !present || value == nil {
		return nil, fmt.Errorf("required input '%s' missing", name)
	}
	return value, nil
}

// toNumber coerces the numeric shapes JSON decoding produces
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
