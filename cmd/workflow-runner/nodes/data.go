package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tidwall/gjson"

	"github.com/lyzr/flowrunner/common/sdk"
)

// transformNode applies an RFC 6902 JSON patch to its input document
type transformNode struct{}

func (n *transformNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	input, err := requireInput(ic.Inputs, "input")
	if err != nil {
		return nil, err
	}
	rawPatch, err := requireInput(ic.Inputs, "patch")
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input document: %w", err)
	}
	patchDoc, err := json.Marshal(rawPatch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("patch failed: %w", err)
	}

	var result interface{}
	if err := json.Unmarshal(patched, &result); err != nil {
		return nil, fmt.Errorf("failed to decode patched document: %w", err)
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{"result": result}}, nil
}

// pickNode extracts a value from its input document by gjson path
type pickNode struct{}

func (n *pickNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	input, err := requireInput(ic.Inputs, "input")
	if err != nil {
		return nil, err
	}
	rawPath, err := requireInput(ic.Inputs, "path")
	if err != nil {
		return nil, err
	}
	path, ok := rawPath.(string)
	if !ok {
		return nil, fmt.Errorf("input 'path' is not a string: %T", rawPath)
	}

	doc, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input document: %w", err)
	}

	value := gjson.GetBytes(doc, path)
	if !value.Exists() {
		return nil, fmt.Errorf("path not found: %s", path)
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{"result": value.Value()}}, nil
}

// mergeNode combines its fan-in items. Object items merge shallowly in
// order (later keys win); any non-object item makes the result the raw list.
type mergeNode struct{}

func (n *mergeNode) Execute(ctx context.Context, ic *sdk.InvocationContext) (*sdk.NodeResult, error) {
	raw, err := requireInput(ic.Inputs, "items")
	if err != nil {
		return nil, err
	}
	items, ok := raw.([]interface{})
	if !ok {
		items = []interface{}{raw}
	}

	merged := map[string]interface{}{}
	for _, item := range items {
		obj, isObject := item.(map[string]interface{})
		if !isObject {
			return &sdk.NodeResult{Outputs: map[string]interface{}{"result": items}}, nil
		}
		for k, v := range obj {
			merged[k] = v
		}
	}
	return &sdk.NodeResult{Outputs: map[string]interface{}{"result": merged}}, nil
}
