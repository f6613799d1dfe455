package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/durable"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/planner"
	"github.com/lyzr/flowrunner/common/sdk"
)

// Coordinator drives one workflow execution end to end: validate, check
// quota, preload resources, run levels, persist, notify. Every unit of work
// that must survive a restart is wrapped in a durable step.
type Coordinator struct {
	executor  *LevelExecutor
	registry  sdk.NodeRegistry
	steps     sdk.StepStore
	store     sdk.ExecutionStore
	monitor   sdk.MonitoringService
	credits   sdk.CreditGate
	resources sdk.ResourceProvider
	logger    sdk.Logger

	stepTimeout time.Duration
	stepRetries int
}

// CoordinatorOpts contains options for creating a coordinator
type CoordinatorOpts struct {
	Executor  *LevelExecutor
	Registry  sdk.NodeRegistry
	Steps     sdk.StepStore
	Store     sdk.ExecutionStore
	Monitor   sdk.MonitoringService
	Credits   sdk.CreditGate
	Resources sdk.ResourceProvider
	Logger    sdk.Logger

	StepTimeout time.Duration
	StepRetries int
}

// NewCoordinator creates a new coordinator
func NewCoordinator(opts *CoordinatorOpts) *Coordinator {
	return &Coordinator{
		executor:    opts.Executor,
		registry:    opts.Registry,
		steps:       opts.Steps,
		store:       opts.Store,
		monitor:     opts.Monitor,
		credits:     opts.Credits,
		resources:   opts.Resources,
		logger:      opts.Logger,
		stepTimeout: opts.StepTimeout,
		stepRetries: opts.StepRetries,
	}
}

// ExecuteRequest identifies one workflow execution
type ExecuteRequest struct {
	// ExecutionID is generated when empty. Re-submitting an id replays
	// completed steps instead of re-running them.
	ExecutionID    string
	Workflow       *sdk.Workflow
	OrganizationID string
	UserID         string
	DeploymentID   string
	// SessionID routes monitoring snapshots; empty means no listener
	SessionID          string
	CallerPlan         string
	SubscriptionStatus string
	OverageLimit       int64
	Trigger            *sdk.Trigger
}

// Execute runs the workflow to a terminal record. Node-level failures are
// recorded in the result, not returned; the returned error is reserved for
// the one unrecoverable case, failing to persist the final record.
func (c *Coordinator) Execute(ctx context.Context, req *ExecuteRequest) (*sdk.ExecutionRecord, error) {
	if req.ExecutionID == "" {
		req.ExecutionID = uuid.New().String()
	}

	startedAt := time.Now().UTC()
	state := NewState()
	runner := durable.NewRunner(&durable.Opts{
		ExecutionID: req.ExecutionID,
		Store:       c.steps,
		Logger:      c.logger,
		Timeout:     c.stepTimeout,
		Retries:     c.stepRetries,
	})

	c.logger.Info("execution started",
		"execution_id", req.ExecutionID,
		"workflow_id", req.Workflow.ID,
		"org_id", req.OrganizationID)

	var plan *planner.ExecutionPlan
	var exhausted bool

	params := func() RecordParams {
		return RecordParams{
			ExecutionID:    req.ExecutionID,
			WorkflowID:     req.Workflow.ID,
			DeploymentID:   req.DeploymentID,
			UserID:         req.UserID,
			OrganizationID: req.OrganizationID,
			Workflow:       req.Workflow,
			Plan:           plan,
			State:          state,
			Exhausted:      exhausted,
			StartedAt:      startedAt,
		}
	}

	c.emit(ctx, req.SessionID, BuildRecord(params()))

	topErr := c.run(ctx, runner, req, state, startedAt, &plan, &exhausted)
	topErrText := ""
	if topErr != nil {
		topErrText = topErr.Error()
		c.logger.Error("execution failed",
			"execution_id", req.ExecutionID,
			"error", topErr)
	}

	// The final persist runs on every path, including panics caught in run.
	// Memoization makes it exactly-once per execution id.
	record, err := durable.Step(ctx, runner, "persist final execution record", func(ctx context.Context) (*sdk.ExecutionRecord, error) {
		endedAt := time.Now().UTC()
		p := params()
		p.TopError = topErrText
		p.EndedAt = &endedAt

		saved, err := c.store.Save(ctx, BuildRecord(p))
		if err != nil {
			return nil, err
		}

		if !exhausted {
			if usageErr := c.credits.RecordUsage(ctx, req.OrganizationID, state.TotalUsage()); usageErr != nil {
				c.logger.Warn("failed to record usage",
					"execution_id", req.ExecutionID,
					"error", usageErr)
			}
		}
		return saved, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist execution record: %w", err)
	}

	c.emit(ctx, req.SessionID, record)

	c.logger.Info("execution finished",
		"execution_id", req.ExecutionID,
		"status", record.Status,
		"usage", state.TotalUsage())
	return record, nil
}

// run performs validation, the quota check, resource preload and the level
// loop. All failures come back as the top-level error; the caller persists
// regardless.
func (c *Coordinator) run(ctx context.Context, runner *durable.Runner, req *ExecuteRequest, state *ExecutionState, startedAt time.Time, planOut **planner.ExecutionPlan, exhausted *bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("coordinator panic",
				"execution_id", req.ExecutionID,
				"panic", r)
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	plan, err := durable.Step(ctx, runner, "initialise workflow", func(ctx context.Context) (*planner.ExecutionPlan, error) {
		return planner.Build(req.Workflow)
	})
	if err != nil {
		return err
	}
	*planOut = plan

	estimated := c.estimateUsage(req.Workflow)
	allowed, gateErr := c.credits.HasEnoughCredits(ctx, sdk.CreditCheck{
		OrganizationID:     req.OrganizationID,
		Estimated:          estimated,
		SubscriptionStatus: req.SubscriptionStatus,
		OverageLimit:       req.OverageLimit,
	})
	if gateErr != nil {
		return fmt.Errorf("credit check failed: %w", gateErr)
	}
	if !allowed {
		*exhausted = true
		c.logger.Warn("execution exhausted",
			"execution_id", req.ExecutionID,
			"org_id", req.OrganizationID,
			"estimated", estimated)
		c.emit(ctx, req.SessionID, BuildRecord(RecordParams{
			ExecutionID:    req.ExecutionID,
			WorkflowID:     req.Workflow.ID,
			DeploymentID:   req.DeploymentID,
			UserID:         req.UserID,
			OrganizationID: req.OrganizationID,
			Workflow:       req.Workflow,
			Plan:           plan,
			State:          state,
			Exhausted:      true,
			StartedAt:      startedAt,
		}))
		return nil
	}

	_, err = durable.Step(ctx, runner, "preload organization resources", func(ctx context.Context) (bool, error) {
		if initErr := c.resources.Initialize(ctx, req.OrganizationID); initErr != nil {
			return false, initErr
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	rc := &RunContext{
		Workflow:       req.Workflow,
		ExecutionID:    req.ExecutionID,
		OrganizationID: req.OrganizationID,
		DeploymentID:   req.DeploymentID,
		CallerPlan:     req.CallerPlan,
		Trigger:        req.Trigger,
	}

	for i, level := range plan.Levels {
		results := c.executor.RunLevel(ctx, runner, rc, level, state)
		c.executor.ApplyResults(state, results)

		c.logger.Debug("level applied",
			"execution_id", req.ExecutionID,
			"level", i,
			"nodes", len(level))

		c.emit(ctx, req.SessionID, BuildRecord(RecordParams{
			ExecutionID:    req.ExecutionID,
			WorkflowID:     req.Workflow.ID,
			DeploymentID:   req.DeploymentID,
			UserID:         req.UserID,
			OrganizationID: req.OrganizationID,
			Workflow:       req.Workflow,
			Plan:           plan,
			State:          state,
			StartedAt:      startedAt,
		}))
	}
	return nil
}

// estimateUsage sums the declared usage cost over all workflow nodes.
// Unregistered types count as 1; they will fail at invocation but are still
// charged as a unit for the estimate.
func (c *Coordinator) estimateUsage(workflow *sdk.Workflow) int {
	total := 0
	for _, node := range workflow.Nodes {
		meta, _ := c.registry.GetNodeType(node.Type)
		total += meta.UsageOrDefault()
	}
	return total
}

// emit pushes a snapshot to the monitoring service. Best-effort.
func (c *Coordinator) emit(ctx context.Context, sessionID string, record *sdk.ExecutionRecord) {
	if err := c.monitor.SendUpdate(ctx, sessionID, record); err != nil {
		c.logger.Warn("failed to send monitoring update",
			"execution_id", record.ID,
			"error", err)
	}
}
