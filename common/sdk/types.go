package sdk

import (
	"time"
)

// Workflow is the immutable input to the execution core: a set of typed
// nodes connected by port-to-port edges.
type Workflow struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a typed unit of work with declared input and output ports.
type Node struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // key into the NodeRegistry
	Inputs  []Port `json:"inputs,omitempty"`
	Outputs []Port `json:"outputs,omitempty"`
}

// Port declares a named parameter on a node. Default and Required apply to
// input ports, Repeated to ports that carry fan-in lists.
type Port struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"` // parameter type key (string, number, image, ...)
	Default  interface{} `json:"default,omitempty"`
	Required bool        `json:"required,omitempty"`
	Repeated bool        `json:"repeated,omitempty"`
}

// Edge connects one node's output port to another node's input port.
type Edge struct {
	Source       string `json:"source"`
	SourceOutput string `json:"source_output"`
	Target       string `json:"target"`
	TargetInput  string `json:"target_input"`
}

// Input returns the declared input port with the given name, if any.
func (n *Node) Input(name string) (*Port, bool) {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i], true
		}
	}
	return nil, false
}

// Output returns the declared output port with the given name, if any.
func (n *Node) Output(name string) (*Port, bool) {
	for i := range n.Outputs {
		if n.Outputs[i].Name == name {
			return &n.Outputs[i], true
		}
	}
	return nil, false
}

// FindNode returns the node with the given id, if any.
func (w *Workflow) FindNode(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// InboundEdges returns the edges targeting the given node, in declaration
// order. Declaration order is significant for fan-in and last-writer-wins
// wiring.
func (w *Workflow) InboundEdges(nodeID string) []Edge {
	var edges []Edge
	for _, e := range w.Edges {
		if e.Target == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// NodeRuntimeValues maps a parameter name to its runtime value: any
// JSON-serializable value (string, number, bool, array, object, or a
// BlobHandle). For repeated parameters the value is an ordered []interface{}.
type NodeRuntimeValues map[string]interface{}

// BlobHandle identifies binary content in the ObjectStore. Blob-typed
// runtime values carry handles on the wire; the parameter codec dereferences
// them around node invocation.
type BlobHandle struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
}

// AsBlobHandle recognises a BlobHandle in a runtime value. Values that have
// round-tripped through JSON arrive as map[string]interface{}, so both shapes
// are accepted.
func AsBlobHandle(v interface{}) (BlobHandle, bool) {
	switch h := v.(type) {
	case BlobHandle:
		return h, true
	case *BlobHandle:
		return *h, true
	case map[string]interface{}:
		id, okID := h["id"].(string)
		mime, okMime := h["mimeType"].(string)
		if okID && okMime && len(h) == 2 {
			return BlobHandle{ID: id, MimeType: mime}, true
		}
	}
	return BlobHandle{}, false
}

// ExecutionStatus is the derived status of a workflow execution. It is never
// stored alongside the state partitions; see the status deriver.
type ExecutionStatus string

const (
	StatusSubmitted ExecutionStatus = "submitted"
	StatusExecuting ExecutionStatus = "executing"
	StatusCompleted ExecutionStatus = "completed"
	StatusError     ExecutionStatus = "error"
	StatusExhausted ExecutionStatus = "exhausted"
)

// IsTerminal reports whether the status is final for the execution.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusExhausted
}

// Node execution statuses as they appear in ExecutionRecord entries.
const (
	NodeStatusCompleted = "completed"
	NodeStatusError     = "error"
	NodeStatusSkipped   = "skipped"
	NodeStatusExecuting = "executing"
	NodeStatusIdle      = "idle"
)

// Skip reasons for nodes the skip resolver marked non-executable.
const (
	SkipReasonUpstreamFailure   = "upstream_failure"
	SkipReasonConditionalBranch = "conditional_branch"
)

// NodeExecution is one node's entry in an ExecutionRecord.
type NodeExecution struct {
	NodeID     string            `json:"node_id"`
	Status     string            `json:"status"`
	Outputs    NodeRuntimeValues `json:"outputs,omitempty"`
	Error      string            `json:"error,omitempty"`
	Usage      int               `json:"usage"`
	SkipReason string            `json:"skip_reason,omitempty"`
	BlockedBy  []string          `json:"blocked_by,omitempty"`
}

// ExecutionRecord is the external-facing snapshot of one workflow execution.
// Persisted once per execution id; intermediate copies are pushed to the
// MonitoringService.
type ExecutionRecord struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	DeploymentID   string          `json:"deployment_id,omitempty"`
	UserID         string          `json:"user_id"`
	OrganizationID string          `json:"organization_id"`
	Status         ExecutionStatus `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        *time.Time      `json:"ended_at,omitempty"`
	Error          string          `json:"error,omitempty"`
	NodeExecutions []NodeExecution `json:"node_executions"`
}

// Trigger carries the payload that started the execution. At most one field
// is set; the shapes are opaque to the core and forwarded to nodes unchanged.
type Trigger struct {
	HTTPRequest  interface{} `json:"http_request,omitempty"`
	Email        interface{} `json:"email,omitempty"`
	QueueMessage interface{} `json:"queue_message,omitempty"`
	Schedule     interface{} `json:"schedule,omitempty"`
}

// Integration is a preloaded third-party connection handed to nodes on
// request. Credential refresh happens behind the ResourceProvider.
type Integration struct {
	ID          string            `json:"id"`
	Provider    string            `json:"provider"`
	AccessToken string            `json:"access_token,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
