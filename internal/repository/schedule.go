package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
)

// ComputeNextFunc returns the next run of a claimed schedule. An error marks
// the schedule as unrunnable and it is disabled instead of advanced.
type ComputeNextFunc func(s *domain.Schedule) (time.Time, error)

type ScheduleRepository interface {
	// Upsert creates or replaces the schedule keyed by (workflow_id, block_id)
	// in one transaction. Saving always reactivates the schedule.
	Upsert(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	GetByWorkflowBlock(ctx context.Context, workflowID, blockID string) (*domain.Schedule, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*domain.Schedule, error)
	// DeleteByWorkflowBlock reports whether a row was removed.
	DeleteByWorkflowBlock(ctx context.Context, workflowID, blockID string) (bool, error)
	Delete(ctx context.Context, id string) error

	Reactivate(ctx context.Context, id string, nextRunAt time.Time) error
	Disable(ctx context.Context, id string) error

	// Atomic: claim due active schedules and advance next_run_at in one tx
	ClaimDue(ctx context.Context, limit int, computeNext ComputeNextFunc) ([]*domain.Schedule, error)
	RecordSuccess(ctx context.Context, id string) error
	// RecordFailure bumps failed_count and disables the schedule once it
	// reaches maxFailures. It reports whether this call disabled it.
	RecordFailure(ctx context.Context, id, errMsg string, maxFailures int) (bool, error)
}
