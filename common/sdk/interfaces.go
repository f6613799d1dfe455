package sdk

import (
	"context"
)

// Logger is the narrow logging interface components accept. Satisfied by
// common/logger.Logger.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// NodeTypeMeta describes a registered node type: its declared ports, its
// usage cost and whether it is gated behind a subscription plan.
type NodeTypeMeta struct {
	Type         string `json:"type"`
	Inputs       []Port `json:"inputs,omitempty"`
	Outputs      []Port `json:"outputs,omitempty"`
	Usage        int    `json:"usage,omitempty"` // cost per invocation, default 1
	Subscription bool   `json:"subscription,omitempty"`
}

// UsageOrDefault returns the declared usage cost, defaulting to 1.
func (m *NodeTypeMeta) UsageOrDefault() int {
	if m == nil || m.Usage <= 0 {
		return 1
	}
	return m.Usage
}

// NodeRegistry resolves node types to metadata and executable instances.
type NodeRegistry interface {
	GetNodeType(nodeType string) (*NodeTypeMeta, bool)
	// CreateExecutable returns an Invokable for the node, or nil when the
	// node type has no implementation.
	CreateExecutable(node *Node) Invokable
}

// NodeResult is what a node invocation produces. Outputs may omit declared
// ports; an absent port signals a conditional branch downstream.
type NodeResult struct {
	Outputs map[string]interface{} `json:"outputs,omitempty"`
	Usage   int                    `json:"usage,omitempty"` // 0 means default (1)
}

// Invokable is the single execution contract for all node implementations.
// A returned error (or a panic, which the invoker recovers) marks the node
// failed with the error text preserved verbatim.
type Invokable interface {
	Execute(ctx context.Context, ic *InvocationContext) (*NodeResult, error)
}

// InvocationContext is what a node sees while executing: its decoded inputs,
// lazy resource accessors, the triggering payload and the tool catalogue.
type InvocationContext struct {
	NodeID         string
	WorkflowID     string
	ExecutionID    string
	OrganizationID string
	DeploymentID   string

	Inputs map[string]interface{}

	GetSecret      func(ctx context.Context, name string) (string, error)
	GetIntegration func(ctx context.Context, id string) (*Integration, error)

	Trigger *Trigger
	Tools   ToolRegistry
}

// ToolRegistry is a read-only catalogue of invokable node types, exposed to
// nodes that orchestrate other nodes (agents). The invocation-context
// factory is supplied after construction to break the provider cycle.
type ToolRegistry interface {
	ListTools() []NodeTypeMeta
	InvokeTool(ctx context.Context, nodeType string, inputs map[string]interface{}) (*NodeResult, error)
}

// NodeContextParams carries everything the ResourceProvider needs to build
// an InvocationContext.
type NodeContextParams struct {
	NodeID         string
	WorkflowID     string
	ExecutionID    string
	OrganizationID string
	DeploymentID   string
	Inputs         map[string]interface{}
	Trigger        *Trigger
}

// ResourceProvider owns organization-scoped resources: secrets, integrations
// and the infrastructure handles nodes need. Initialize is called once per
// execution; the preloaded maps are read-only afterwards.
type ResourceProvider interface {
	Initialize(ctx context.Context, organizationID string) error
	CreateNodeContext(ctx context.Context, params NodeContextParams) (*InvocationContext, error)
}

// ObjectStore persists binary parameter values. Objects are immutable after
// write and addressed by handle id.
type ObjectStore interface {
	WriteObject(ctx context.Context, data []byte, mimeType, organizationID, executionID string) (BlobHandle, error)
	ReadObject(ctx context.Context, handle BlobHandle) ([]byte, error)
}

// ExecutionStore persists execution records. Save is idempotent by record id.
type ExecutionStore interface {
	Save(ctx context.Context, record *ExecutionRecord) (*ExecutionRecord, error)
	GetByID(ctx context.Context, id string) (*ExecutionRecord, error)
}

// MonitoringService pushes execution snapshots to interested listeners.
// Best-effort: failures are logged by callers, never fatal.
type MonitoringService interface {
	SendUpdate(ctx context.Context, sessionID string, record *ExecutionRecord) error
}

// CreditCheck is the request for the pre-execution quota gate.
type CreditCheck struct {
	OrganizationID     string
	Estimated          int
	SubscriptionStatus string
	OverageLimit       int64
}

// CreditGate answers the single quota question and records actual usage
// after the run.
type CreditGate interface {
	HasEnoughCredits(ctx context.Context, check CreditCheck) (bool, error)
	RecordUsage(ctx context.Context, organizationID string, actual int) error
}

// StepStore is the durable backing for memoized step results, keyed by
// execution id and step name. Entries are append-only.
type StepStore interface {
	GetStep(ctx context.Context, executionID, name string) ([]byte, bool, error)
	PutStep(ctx context.Context, executionID, name string, result []byte) error
}
