package codec

import (
	"context"
	"fmt"

	"github.com/lyzr/flowrunner/common/sdk"
)

// binaryTypes are the parameter types whose values transit the object store.
// Everything else round-trips its JSON payload unchanged.
var binaryTypes = map[string]bool{
	"image":    true,
	"audio":    true,
	"video":    true,
	"document": true,
	"binary":   true,
}

// Codec converts between runtime values (JSON-serializable, blob handles for
// binary content) and the values node code sees (raw bytes for binary
// content).
type Codec struct {
	store sdk.ObjectStore
}

// New creates a codec backed by the given object store
func New(store sdk.ObjectStore) *Codec {
	return &Codec{store: store}
}

// DecodeInputs converts wired runtime values into the processed inputs map
// handed to the node. Nil values are dropped; the node performs its own
// required checks at invocation. Repeated inputs decode element-wise.
func (c *Codec) DecodeInputs(ctx context.Context, node *sdk.Node, wired sdk.NodeRuntimeValues) (map[string]interface{}, error) {
	processed := make(map[string]interface{}, len(wired))

	for name, value := range wired {
		if value == nil {
			continue
		}

		paramType := "string"
		repeated := false
		if port, ok := node.Input(name); ok {
			paramType = port.Type
			repeated = port.Repeated
		}

		if repeated {
			elements, ok := value.([]interface{})
			if !ok {
				elements = []interface{}{value}
			}
			decoded := make([]interface{}, 0, len(elements))
			for i, element := range elements {
				dv, err := c.Decode(ctx, paramType, element)
				if err != nil {
					return nil, fmt.Errorf("failed to decode input %s[%d]: %w", name, i, err)
				}
				decoded = append(decoded, dv)
			}
			processed[name] = decoded
			continue
		}

		decoded, err := c.Decode(ctx, paramType, value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode input %s: %w", name, err)
		}
		processed[name] = decoded
	}

	return processed, nil
}

// EncodeOutputs converts a node's returned values into runtime values,
// writing binary content to the object store. Ports absent from the returned
// map stay absent: that is how conditional nodes signal an untaken branch.
func (c *Codec) EncodeOutputs(ctx context.Context, node *sdk.Node, outputs map[string]interface{}, organizationID, executionID string) (sdk.NodeRuntimeValues, error) {
	encoded := make(sdk.NodeRuntimeValues, len(outputs))

	for name, value := range outputs {
		if value == nil {
			continue
		}

		paramType := "string"
		repeated := false
		if port, ok := node.Output(name); ok {
			paramType = port.Type
			repeated = port.Repeated
		}

		if repeated {
			elements, ok := value.([]interface{})
			if !ok {
				elements = []interface{}{value}
			}
			out := make([]interface{}, 0, len(elements))
			for i, element := range elements {
				ev, err := c.Encode(ctx, paramType, element, organizationID, executionID)
				if err != nil {
					return nil, fmt.Errorf("failed to encode output %s[%d]: %w", name, i, err)
				}
				out = append(out, ev)
			}
			encoded[name] = out
			continue
		}

		ev, err := c.Encode(ctx, paramType, value, organizationID, executionID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode output %s: %w", name, err)
		}
		encoded[name] = ev
	}

	return encoded, nil
}

// Decode converts one runtime value into its node-facing form. Binary types
// dereference the blob handle into raw bytes; everything else passes through.
func (c *Codec) Decode(ctx context.Context, paramType string, value interface{}) (interface{}, error) {
	if !binaryTypes[paramType] {
		return value, nil
	}

	handle, ok := sdk.AsBlobHandle(value)
	if !ok {
		// Raw bytes that never transited the store are handed over as-is
		if data, isBytes := value.([]byte); isBytes {
			return data, nil
		}
		return nil, fmt.Errorf("expected blob handle for %s parameter, got %T", paramType, value)
	}

	data, err := c.store.ReadObject(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", handle.ID, err)
	}
	return data, nil
}

// Encode converts one node-facing value into its runtime form. Binary types
// write their bytes to the object store and return the handle; a value that
// is already a handle passes through. Secrets were resolved upstream and
// encode as plain strings.
func (c *Codec) Encode(ctx context.Context, paramType string, value interface{}, organizationID, executionID string) (interface{}, error) {
	if !binaryTypes[paramType] {
		return value, nil
	}

	if handle, ok := sdk.AsBlobHandle(value); ok {
		return handle, nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, fmt.Errorf("expected bytes for %s parameter, got %T", paramType, value)
	}

	handle, err := c.store.WriteObject(ctx, data, mimeFor(paramType), organizationID, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	return handle, nil
}

func mimeFor(paramType string) string {
	switch paramType {
	case "image":
		return "image/png"
	case "audio":
		return "audio/mpeg"
	case "video":
		return "video/mp4"
	case "document":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
