package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowrunner/common/clients"
	"github.com/lyzr/flowrunner/common/sdk"
)

func testNode() *sdk.Node {
	return &sdk.Node{
		ID:   "n1",
		Type: "test",
		Inputs: []sdk.Port{
			{Name: "text", Type: "string"},
			{Name: "count", Type: "number"},
			{Name: "photo", Type: "image"},
			{Name: "items", Type: "string", Repeated: true},
			{Name: "frames", Type: "image", Repeated: true},
		},
		Outputs: []sdk.Port{
			{Name: "result", Type: "string"},
			{Name: "thumbnail", Type: "image"},
			{Name: "token", Type: "secret"},
		},
	}
}

func TestDecodeInputsPassthrough(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	wired := sdk.NodeRuntimeValues{
		"text":  "hello",
		"count": 3.0,
	}
	processed, err := c.DecodeInputs(context.Background(), testNode(), wired)
	require.NoError(t, err)
	assert.Equal(t, "hello", processed["text"])
	assert.Equal(t, 3.0, processed["count"])
}

func TestDecodeInputsDropsNil(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	wired := sdk.NodeRuntimeValues{
		"text":  nil,
		"count": 1.0,
	}
	processed, err := c.DecodeInputs(context.Background(), testNode(), wired)
	require.NoError(t, err)
	_, present := processed["text"]
	assert.False(t, present)
	assert.Len(t, processed, 1)
}

func TestBlobRoundTrip(t *testing.T) {
	store := clients.NewMemoryObjectStore()
	c := New(store)
	ctx := context.Background()

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	runtime, err := c.Encode(ctx, "image", payload, "org-1", "exec-1")
	require.NoError(t, err)

	handle, ok := runtime.(sdk.BlobHandle)
	require.True(t, ok)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, "image/png", handle.MimeType)

	decoded, err := c.Decode(ctx, "image", handle)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodeBlobFromJSONMap(t *testing.T) {
	store := clients.NewMemoryObjectStore()
	c := New(store)
	ctx := context.Background()

	handle, err := store.WriteObject(ctx, []byte("doc"), "application/pdf", "org-1", "exec-1")
	require.NoError(t, err)

	// Persisted state deserializes handles as plain maps
	asMap := map[string]interface{}{"id": handle.ID, "mimeType": handle.MimeType}
	decoded, err := c.Decode(ctx, "document", asMap)
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), decoded)
}

func TestEncodeExistingHandlePassesThrough(t *testing.T) {
	store := clients.NewMemoryObjectStore()
	c := New(store)
	ctx := context.Background()

	handle, err := store.WriteObject(ctx, []byte("x"), "application/octet-stream", "org-1", "exec-1")
	require.NoError(t, err)
	before := store.Len()

	runtime, err := c.Encode(ctx, "binary", handle, "org-1", "exec-1")
	require.NoError(t, err)
	assert.Equal(t, handle, runtime)
	assert.Equal(t, before, store.Len())
}

func TestEncodeOutputsSecretAsString(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	encoded, err := c.EncodeOutputs(context.Background(), testNode(), map[string]interface{}{
		"token": "sk-resolved",
	}, "org-1", "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "sk-resolved", encoded["token"])
}

func TestEncodeOutputsOmitsAbsentPorts(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	encoded, err := c.EncodeOutputs(context.Background(), testNode(), map[string]interface{}{
		"result": "ok",
	}, "org-1", "exec-1")
	require.NoError(t, err)
	assert.Len(t, encoded, 1)
	_, present := encoded["thumbnail"]
	assert.False(t, present)
}

func TestRepeatedInputsDecodeElementWise(t *testing.T) {
	store := clients.NewMemoryObjectStore()
	c := New(store)
	ctx := context.Background()

	h1, err := store.WriteObject(ctx, []byte("a"), "image/png", "org-1", "exec-1")
	require.NoError(t, err)
	h2, err := store.WriteObject(ctx, []byte("b"), "image/png", "org-1", "exec-1")
	require.NoError(t, err)

	wired := sdk.NodeRuntimeValues{
		"items":  []interface{}{"x", "y"},
		"frames": []interface{}{h1, h2},
	}
	processed, err := c.DecodeInputs(ctx, testNode(), wired)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"x", "y"}, processed["items"])
	frames, ok := processed["frames"].([]interface{})
	require.True(t, ok)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("a"), frames[0])
	assert.Equal(t, []byte("b"), frames[1])
}

func TestUnknownTypeDefaultsToString(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	node := &sdk.Node{
		ID:     "n",
		Type:   "test",
		Inputs: []sdk.Port{{Name: "custom", Type: "vector-embedding"}},
	}
	processed, err := c.DecodeInputs(context.Background(), node, sdk.NodeRuntimeValues{"custom": "raw"})
	require.NoError(t, err)
	assert.Equal(t, "raw", processed["custom"])
}

func TestDecodeBlobWrongValue(t *testing.T) {
	c := New(clients.NewMemoryObjectStore())

	_, err := c.Decode(context.Background(), "image", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected blob handle")
}
