package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyzr/flowrunner/common/db"
	"github.com/lyzr/flowrunner/common/sdk"
)

// ExecutionRepository handles database operations for execution records.
// Implements sdk.ExecutionStore: Save is idempotent by execution id (upsert).
type ExecutionRepository struct {
	db *db.DB
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(database *db.DB) *ExecutionRepository {
	return &ExecutionRepository{db: database}
}

// Save upserts an execution record
func (r *ExecutionRepository) Save(ctx context.Context, record *sdk.ExecutionRecord) (*sdk.ExecutionRecord, error) {
	nodeExecutions, err := json.Marshal(record.NodeExecutions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node executions: %w", err)
	}

	query := `
		INSERT INTO execution (execution_id, workflow_id, deployment_id, user_id, organization_id, status, error, started_at, ended_at, node_executions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			ended_at = EXCLUDED.ended_at,
			node_executions = EXCLUDED.node_executions
	`

	_, err = r.db.Exec(
		ctx,
		query,
		record.ID,
		record.WorkflowID,
		nullable(record.DeploymentID),
		record.UserID,
		record.OrganizationID,
		record.Status,
		nullable(record.Error),
		record.StartedAt,
		record.EndedAt,
		nodeExecutions,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	return record, nil
}

// GetByID retrieves an execution record by its ID
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*sdk.ExecutionRecord, error) {
	query := `
		SELECT execution_id, workflow_id, deployment_id, user_id, organization_id, status, error, started_at, ended_at, node_executions
		FROM execution
		WHERE execution_id = $1
	`

	record := &sdk.ExecutionRecord{}
	var deploymentID, errMsg *string
	var nodeExecutions []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.WorkflowID,
		&deploymentID,
		&record.UserID,
		&record.OrganizationID,
		&record.Status,
		&errMsg,
		&record.StartedAt,
		&record.EndedAt,
		&nodeExecutions,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	if deploymentID != nil {
		record.DeploymentID = *deploymentID
	}
	if errMsg != nil {
		record.Error = *errMsg
	}
	if err := json.Unmarshal(nodeExecutions, &record.NodeExecutions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node executions: %w", err)
	}

	return record, nil
}

// ListByWorkflow retrieves executions for a workflow, newest first
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*sdk.ExecutionRecord, error) {
	query := `
		SELECT execution_id, workflow_id, deployment_id, user_id, organization_id, status, error, started_at, ended_at, node_executions
		FROM execution
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var records []*sdk.ExecutionRecord
	for rows.Next() {
		record := &sdk.ExecutionRecord{}
		var deploymentID, errMsg *string
		var nodeExecutions []byte

		err := rows.Scan(
			&record.ID,
			&record.WorkflowID,
			&deploymentID,
			&record.UserID,
			&record.OrganizationID,
			&record.Status,
			&errMsg,
			&record.StartedAt,
			&record.EndedAt,
			&nodeExecutions,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		if deploymentID != nil {
			record.DeploymentID = *deploymentID
		}
		if errMsg != nil {
			record.Error = *errMsg
		}
		if err := json.Unmarshal(nodeExecutions, &record.NodeExecutions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node executions: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
