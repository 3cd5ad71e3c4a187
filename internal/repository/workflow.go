package repository

import (
	"context"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
)

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	// HasWriteAccess is true for the workflow owner and for workspace members
	// holding admin or write permission.
	HasWriteAccess(ctx context.Context, workflowID, userID string) (bool, error)
}
