package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkflowRepository struct {
	pool *pgxpool.Pool
}

func NewWorkflowRepository(pool *pgxpool.Pool) *WorkflowRepository {
	return &WorkflowRepository{pool: pool}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	var w domain.Workflow
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, workspace_id, name, created_at, updated_at
		FROM workflow
		WHERE id = $1`, id,
	).Scan(&w.ID, &w.UserID, &w.WorkspaceID, &w.Name, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return &w, nil
}

func (r *WorkflowRepository) HasWriteAccess(ctx context.Context, workflowID, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workflow w
			WHERE w.id = $1 AND w.user_id = $2
		) OR EXISTS (
			SELECT 1 FROM workflow w
			JOIN permissions p
			  ON p.entity_type = 'workspace'
			 AND p.entity_id = w.workspace_id
			WHERE w.id = $1 AND p.user_id = $2
			  AND p.permission_type IN ('admin', 'write')
		)`, workflowID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check workflow access: %w", err)
	}
	return ok, nil
}
