package resources

import (
	"context"
	"fmt"
	"sync"

	"github.com/lyzr/flowrunner/common/sdk"
)

// SecretSource loads an organization's secrets
type SecretSource interface {
	LoadSecrets(ctx context.Context, organizationID string) (map[string]string, error)
}

// IntegrationSource loads an organization's third-party integrations
type IntegrationSource interface {
	LoadIntegrations(ctx context.Context, organizationID string) (map[string]*sdk.Integration, error)
}

// Provider preloads organization-scoped resources once per execution and
// hands nodes their invocation contexts. The preloaded maps are read-only
// after Initialize.
type Provider struct {
	secretSource      SecretSource
	integrationSource IntegrationSource
	logger            sdk.Logger

	mu              sync.RWMutex
	loadedOrg       string
	secretVals      map[string]string
	integrationVals map[string]*sdk.Integration
	tools           sdk.ToolRegistry
}

// Opts contains options for creating a resource provider
type Opts struct {
	Secrets      SecretSource
	Integrations IntegrationSource
	Logger       sdk.Logger
}

// NewProvider creates a resource provider. The tool registry is attached
// afterwards via SetToolRegistry; tools need an already-built provider to
// construct their own invocation contexts.
func NewProvider(opts *Opts) *Provider {
	return &Provider{
		secretSource:      opts.Secrets,
		integrationSource: opts.Integrations,
		logger:            opts.Logger,
	}
}

// SetToolRegistry attaches the tool catalogue. Called once during wiring,
// before any execution starts.
func (p *Provider) SetToolRegistry(tools sdk.ToolRegistry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = tools
}

// Initialize preloads secrets and integrations for the organization.
// Idempotent per organization id.
func (p *Provider) Initialize(ctx context.Context, organizationID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loadedOrg == organizationID {
		return nil
	}

	secretVals := map[string]string{}
	if p.secretSource != nil {
		loaded, err := p.secretSource.LoadSecrets(ctx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
		secretVals = loaded
	}

	integrationVals := map[string]*sdk.Integration{}
	if p.integrationSource != nil {
		loaded, err := p.integrationSource.LoadIntegrations(ctx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to load integrations: %w", err)
		}
		integrationVals = loaded
	}

	p.loadedOrg = organizationID
	p.secretVals = secretVals
	p.integrationVals = integrationVals

	p.logger.Debug("organization resources preloaded",
		"org_id", organizationID,
		"secrets", len(secretVals),
		"integrations", len(integrationVals))
	return nil
}

// CreateNodeContext builds the context one node invocation sees. The secret
// and integration accessors read the preloaded maps lazily.
func (p *Provider) CreateNodeContext(ctx context.Context, params sdk.NodeContextParams) (*sdk.InvocationContext, error) {
	p.mu.RLock()
	tools := p.tools
	p.mu.RUnlock()

	return &sdk.InvocationContext{
		NodeID:         params.NodeID,
		WorkflowID:     params.WorkflowID,
		ExecutionID:    params.ExecutionID,
		OrganizationID: params.OrganizationID,
		DeploymentID:   params.DeploymentID,
		Inputs:         params.Inputs,
		Trigger:        params.Trigger,
		Tools:          tools,
		GetSecret: func(ctx context.Context, name string) (string, error) {
			p.mu.RLock()
			defer p.mu.RUnlock()
			value, found := p.secretVals[name]
			if !found {
				return "", fmt.Errorf("secret not found: %s", name)
			}
			return value, nil
		},
		GetIntegration: func(ctx context.Context, id string) (*sdk.Integration, error) {
			p.mu.RLock()
			defer p.mu.RUnlock()
			integration, found := p.integrationVals[id]
			if !found {
				return nil, fmt.Errorf("integration not found: %s", id)
			}
			return integration, nil
		},
	}, nil
}

// StaticSecrets is a fixed in-memory secret source for development and tests
type StaticSecrets map[string]string

func (s StaticSecrets) LoadSecrets(ctx context.Context, organizationID string) (map[string]string, error) {
	return s, nil
}

// StaticIntegrations is a fixed in-memory integration source
type StaticIntegrations map[string]*sdk.Integration

func (s StaticIntegrations) LoadIntegrations(ctx context.Context, organizationID string) (map[string]*sdk.Integration, error) {
	return s, nil
}
