package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/engine"
	"github.com/lyzr/flowrunner/common/sdk"
)

// ExecutionHandler handles execution-related requests
type ExecutionHandler struct {
	coordinator *engine.Coordinator
	store       sdk.ExecutionStore
	logger      sdk.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(coordinator *engine.Coordinator, store sdk.ExecutionStore, logger sdk.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		coordinator: coordinator,
		store:       store,
		logger:      logger,
	}
}

// SubmitExecutionRequest is the body of POST /api/v1/executions
type SubmitExecutionRequest struct {
	ExecutionID        string        `json:"execution_id,omitempty"`
	Workflow           *sdk.Workflow `json:"workflow"`
	OrganizationID     string        `json:"organization_id"`
	UserID             string        `json:"user_id"`
	DeploymentID       string        `json:"deployment_id,omitempty"`
	SessionID          string        `json:"session_id,omitempty"`
	CallerPlan         string        `json:"caller_plan,omitempty"`
	SubscriptionStatus string        `json:"subscription_status,omitempty"`
	OverageLimit       int64         `json:"overage_limit,omitempty"`
	Trigger            *sdk.Trigger  `json:"trigger,omitempty"`
}

// SubmitExecution runs a workflow to completion and returns the final record
// POST /api/v1/executions
func (h *ExecutionHandler) SubmitExecution(c echo.Context) error {
	var req SubmitExecutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	if req.Workflow == nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "workflow is required",
		})
	}
	if req.OrganizationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "organization_id is required",
		})
	}

	record, err := h.coordinator.Execute(c.Request().Context(), &engine.ExecuteRequest{
		ExecutionID:        req.ExecutionID,
		Workflow:           req.Workflow,
		OrganizationID:     req.OrganizationID,
		UserID:             req.UserID,
		DeploymentID:       req.DeploymentID,
		SessionID:          req.SessionID,
		CallerPlan:         req.CallerPlan,
		SubscriptionStatus: req.SubscriptionStatus,
		OverageLimit:       req.OverageLimit,
		Trigger:            req.Trigger,
	})
	if err != nil {
		h.logger.Error("execution failed to persist",
			"workflow_id", req.Workflow.ID,
			"error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to persist execution record",
		})
	}

	return c.JSON(http.StatusCreated, record)
}

// GetExecution retrieves an execution record
// GET /api/v1/executions/:id
func (h *ExecutionHandler) GetExecution(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "execution id is required",
		})
	}

	record, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "execution not found",
		})
	}

	return c.JSON(http.StatusOK, record)
}
