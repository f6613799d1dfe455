package nodes

import (
	"context"
	"fmt"

	"github.com/lyzr/flowrunner/common/sdk"
)

// valueNode emits its configured value unchanged. Backs the number and
// string source node types; the value arrives as a static default on the
// node's input port.
type valueNode struct{}

func (n *valueNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	value, err := requireInput(ic.Inputs, "value")
	if err != nil {
		return nil, err
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{"value": value}}, nil
}

type mathFn func(a, b float64) (float64, error)

var mathOps = map[string]mathFn{
	"add":      func(a, b float64) (float64, error) { return a + b, nil },
	"subtract": func(a, b float64) (float64, error) { return a - b, nil },
	"multiply": func(a, b float64) (float64, error) { return a * b, nil },
	"divide": func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	},
}

// mathNode applies a binary arithmetic operation to inputs a and b
type mathNode struct {
	op string
	fn mathFn
}

func (n *mathNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	a, err := n.operand(ic.Inputs, "a")
	if err != nil {
		return nil, err
	}
	b, err := n.operand(ic.Inputs, "b")
	if err != nil {
		return nil, err
	}

	result, err := n.fn(a, b)
	if err != nil {
		return nil, err
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{"result": result}}, nil
}

func (n *mathNode) operand(inputs map[string]interface{}, name string) (float64, error) {
	raw, err := requireInput(inputs, name)
	if err != nil {
		return 0, err
	}
	value, ok := toNumber(raw)
	if !ok {
		return 0, fmt.Errorf("input '%s' of %s is not a number: %T", name, n.op, raw)
	}
	return value, nil
}
