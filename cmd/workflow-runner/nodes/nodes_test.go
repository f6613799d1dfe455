package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/condition"
	"github.com/lyzr/flowrunner/common/sdk"
)

func run(t *testing.T, nodeType string, inputs map[string]interface{}) (*sdk.NodeResult, error) {
	t.Helper()
	r := NewRegistry(condition.NewEvaluator())

	executable := r.CreateExecutable(&sdk.Node{ID: "n", Type: nodeType})
	require.NotNil(t, executable, "node type %s not registered", nodeType)

	return executable.Execute(context.Background(), &sdk.InvocationContext{
		NodeID: "n",
		Inputs: inputs,
	})
}

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := NewRegistry(condition.NewEvaluator())

	for _, nodeType := range []string{"number", "string", "add", "subtract", "multiply", "divide", "condition", "transform", "pick", "merge"} {
		meta, ok := r.GetNodeType(nodeType)
		require.True(t, ok, "missing type %s", nodeType)
		assert.Equal(t, nodeType, meta.Type)
		assert.Equal(t, 1, meta.UsageOrDefault())
	}

	_, ok := r.GetNodeType("ghost")
	assert.False(t, ok)
	assert.Nil(t, r.CreateExecutable(&sdk.Node{ID: "x", Type: "ghost"}))
}

func TestRegistryTypesOrder(t *testing.T) {
	r := NewRegistry(condition.NewEvaluator())
	types := r.Types()
	assert.Len(t, types, 10)
}

func TestValueNodes(t *testing.T) {
	result, err := run(t, "number", map[string]interface{}{"value": 5.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Outputs["value"])

	result, err = run(t, "string", map[string]interface{}{"value": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Outputs["value"])

	_, err = run(t, "number", map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, "required input 'value' missing", err.Error())
}

func TestMathNodes(t *testing.T) {
	cases := []struct {
		op       string
		a, b     float64
		expected float64
	}{
		{"add", 5, 3, 8},
		{"subtract", 5, 3, 2},
		{"multiply", 8, 2, 16},
		{"divide", 10, 4, 2.5},
	}
	for _, tc := range cases {
		result, err := run(t, tc.op, map[string]interface{}{"a": tc.a, "b": tc.b})
		require.NoError(t, err, tc.op)
		assert.Equal(t, tc.expected, result.Outputs["result"], tc.op)
	}
}

func TestDivideByZero(t *testing.T) {
	_, err := run(t, "divide", map[string]interface{}{"a": 10.0, "b": 0.0})
	require.Error(t, err)
	assert.Equal(t, "division by zero", err.Error())
}

func TestMathMissingOperand(t *testing.T) {
	_, err := run(t, "subtract", map[string]interface{}{"a": 1.0})
	require.Error(t, err)
	assert.Equal(t, "required input 'b' missing", err.Error())
}

func TestMathNonNumericOperand(t *testing.T) {
	_, err := run(t, "add", map[string]interface{}{"a": "one", "b": 2.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}

func TestConditionTrueBranch(t *testing.T) {
	result, err := run(t, "condition", map[string]interface{}{
		"input":      map[string]interface{}{"score": 0.9},
		"expression": "input.score > 0.5",
	})
	require.NoError(t, err)

	emitted, present := result.Outputs["true"]
	require.True(t, present)
	assert.Equal(t, map[string]interface{}{"score": 0.9}, emitted)

	_, falsePresent := result.Outputs["false"]
	assert.False(t, falsePresent)
}

func TestConditionFalseBranch(t *testing.T) {
	result, err := run(t, "condition", map[string]interface{}{
		"input":      map[string]interface{}{"score": 0.2},
		"expression": "input.score > 0.5",
	})
	require.NoError(t, err)

	_, truePresent := result.Outputs["true"]
	assert.False(t, truePresent)
	_, falsePresent := result.Outputs["false"]
	assert.True(t, falsePresent)
}

func TestConditionBadExpression(t *testing.T) {
	_, err := run(t, "condition", map[string]interface{}{
		"input":      1.0,
		"expression": "input +",
	})
	assert.Error(t, err)
}

func TestTransformPatch(t *testing.T) {
	result, err := run(t, "transform", map[string]interface{}{
		"input": map[string]interface{}{"name": "draft", "version": 1.0},
		"patch": []interface{}{
			map[string]interface{}{"op": "replace", "path": "/name", "value": "final"},
			map[string]interface{}{"op": "remove", "path": "/version"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "final"}, result.Outputs["result"])
}

func TestTransformInvalidPatch(t *testing.T) {
	_, err := run(t, "transform", map[string]interface{}{
		"input": map[string]interface{}{},
		"patch": []interface{}{map[string]interface{}{"op": "teleport", "path": "/x"}},
	})
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	result, err := run(t, "pick", map[string]interface{}{
		"input": map[string]interface{}{
			"user": map[string]interface{}{"name": "ada", "tags": []interface{}{"a", "b"}},
		},
		"path": "user.tags.1",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", result.Outputs["result"])
}

func TestPickMissingPath(t *testing.T) {
	_, err := run(t, "pick", map[string]interface{}{
		"input": map[string]interface{}{"a": 1.0},
		"path":  "b.c",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not found")
}

func TestMergeObjects(t *testing.T) {
	result, err := run(t, "merge", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"a": 1.0, "b": 1.0},
			map[string]interface{}{"b": 2.0, "c": 3.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1.0, "b": 2.0, "c": 3.0}, result.Outputs["result"])
}

func TestMergeNonObjects(t *testing.T) {
	result, err := run(t, "merge", map[string]interface{}{
		"items": []interface{}{"x", "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y"}, result.Outputs["result"])
}

func TestRegisterCustomType(t *testing.T) {
	r := NewRegistry(condition.NewEvaluator())
	r.Register(&sdk.NodeTypeMeta{Type: "custom", Usage: 3}, func(node *sdk.Node) sdk.Invokable {
		return &valueNode{}
	})

	meta, ok := r.GetNodeType("custom")
	require.True(t, ok)
	assert.Equal(t, 3, meta.UsageOrDefault())
	assert.NotNil(t, r.CreateExecutable(&sdk.Node{ID: "c", Type: "custom"}))
}
