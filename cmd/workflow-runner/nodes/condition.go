package nodes

import (
	"context"
	"fmt"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/condition"
	"github.com/lyzr/flowrunner/common/sdk"
)

// conditionNode evaluates a CEL expression over its input and forwards the
// input on exactly one of its two output ports. The untaken port is absent
// from the outputs, which is what downstream skip classification keys on.
type conditionNode struct {
	evaluator *condition.Evaluator
}

func (n *conditionNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	rawExpr, err := requireInput(ic.Inputs, "expression")
	if err != nil {
		return nil, err
	}
	expr, ok := rawExpr.(string)
	if !ok {
		return nil, fmt.Errorf("input 'expression' is not a string: %T", rawExpr)
	}

	input := ic.Inputs["input"]

	result, err := n.evaluator.Evaluate(expr, input, map[string]interface{}{
		"nodeId":      ic.NodeID,
		"workflowId":  ic.WorkflowID,
		"executionId": ic.ExecutionID,
	})
	if err != nil {
		return nil, err
	}

	port := "false"
	if result {
		port = "true"
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{port: input}}, nil
}
