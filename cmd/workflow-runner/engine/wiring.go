package engine

import (
	"github.com/lyzr/flowrunner/common/sdk"
)

// CollectInputs assembles a node's runtime input values. Static defaults
// seed the map; inbound edge values override them. For a repeated input the
// wired value is the ordered list of emitted source values (edge declaration
// order), with source arrays flattened one level. For a single-value input
// the last emitted source wins.
func CollectInputs(workflow *sdk.Workflow, node *sdk.Node, state *ExecutionState) sdk.NodeRuntimeValues {
	wired := sdk.NodeRuntimeValues{}

	for _, port := range node.Inputs {
		if port.Default != nil {
			wired[port.Name] = port.Default
		}
	}

	// Group inbound edges by target input, preserving declaration order
	byInput := make(map[string][]sdk.Edge)
	var inputOrder []string
	for _, edge := range workflow.InboundEdges(node.ID) {
		if _, present := byInput[edge.TargetInput]; !present {
			inputOrder = append(inputOrder, edge.TargetInput)
		}
		byInput[edge.TargetInput] = append(byInput[edge.TargetInput], edge)
	}

	for _, inputName := range inputOrder {
		var collected []interface{}
		for _, edge := range byInput[inputName] {
			outputs, executed := state.NodeOutputs[edge.Source]
			if !executed {
				continue
			}
			value, emitted := outputs[edge.SourceOutput]
			if !emitted {
				continue
			}
			collected = append(collected, value)
		}
		if len(collected) == 0 {
			// The static default, if any, stands
			continue
		}

		port, declared := node.Input(inputName)
		if declared && port.Repeated {
			wired[inputName] = flattenOne(collected)
		} else {
			wired[inputName] = collected[len(collected)-1]
		}
	}

	return wired
}

// flattenOne flattens array elements one level into the fan-in list
func flattenOne(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if inner, isArray := v.([]interface{}); isArray {
			out = append(out, inner...)
		} else {
			out = append(out, v)
		}
	}
	return out
}
