package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/ErlanBelekov/workflow-scheduler/internal/repository"
	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
)

// InvalidScheduleError carries a message meant for the end user.
type InvalidScheduleError struct {
	Message string
}

func (e *InvalidScheduleError) Error() string { return e.Message }

func (e *InvalidScheduleError) Unwrap() error { return domain.ErrInvalidSchedule }

type ScheduleUsecase struct {
	schedules repository.ScheduleRepository
	workflows repository.WorkflowRepository
	logger    *slog.Logger
	now       func() time.Time
}

func NewScheduleUsecase(schedules repository.ScheduleRepository, workflows repository.WorkflowRepository, logger *slog.Logger) *ScheduleUsecase {
	return &ScheduleUsecase{
		schedules: schedules,
		workflows: workflows,
		logger:    logger.With("component", "schedule_usecase"),
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (u *ScheduleUsecase) WithClock(now func() time.Time) *ScheduleUsecase {
	u.now = now
	return u
}

type SaveScheduleInput struct {
	UserID     string
	WorkflowID string
	BlockID    string // optional, otherwise the trigger block is looked up in State
	State      domain.WorkflowState
}

type SaveScheduleResult struct {
	// Removed is set when the workflow has nothing to schedule and any
	// existing schedule was deleted.
	Removed  bool
	Schedule *domain.Schedule
}

// SaveSchedule turns the trigger block of a saved workflow into a persisted
// schedule, or removes the schedule when the block no longer describes one.
func (u *ScheduleUsecase) SaveSchedule(ctx context.Context, input SaveScheduleInput) (SaveScheduleResult, error) {
	if err := u.authorize(ctx, input.WorkflowID, input.UserID); err != nil {
		return SaveScheduleResult{}, err
	}

	block, ok, err := findTrigger(input)
	if err != nil {
		return SaveScheduleResult{}, err
	}
	if !ok {
		if err := u.removeAll(ctx, input.WorkflowID); err != nil {
			return SaveScheduleResult{}, err
		}
		return SaveScheduleResult{Removed: true}, nil
	}

	values, err := schedule.ValuesFromBlock(block)
	if err != nil {
		return SaveScheduleResult{}, &InvalidScheduleError{Message: err.Error()}
	}

	if !schedule.HasValidScheduleConfig(values.ScheduleType, values) {
		removed, err := u.schedules.DeleteByWorkflowBlock(ctx, input.WorkflowID, block.ID)
		if err != nil {
			return SaveScheduleResult{}, fmt.Errorf("remove schedule: %w", err)
		}
		if removed {
			u.logger.InfoContext(ctx, "schedule removed",
				"workflow_id", input.WorkflowID,
				"block_id", block.ID,
				"schedule_type", values.ScheduleType,
			)
		}
		return SaveScheduleResult{Removed: true}, nil
	}

	expr, err := schedule.GenerateCronExpression(values.ScheduleType, values)
	if err != nil {
		return SaveScheduleResult{}, &InvalidScheduleError{Message: err.Error()}
	}

	tz := values.Location()
	if res := schedule.ValidateCronExpression(expr, tz); !res.IsValid {
		return SaveScheduleResult{}, &InvalidScheduleError{Message: res.Error}
	}

	nextRunAt, err := schedule.NextRunAt(expr, tz, u.now())
	if err != nil {
		return SaveScheduleResult{}, &InvalidScheduleError{Message: err.Error()}
	}

	saved, err := u.schedules.Upsert(ctx, &domain.Schedule{
		WorkflowID:     input.WorkflowID,
		BlockID:        block.ID,
		CronExpression: expr,
		Timezone:       tz,
		TriggerType:    domain.TriggerTypeSchedule,
		NextRunAt:      nextRunAt,
		Status:         domain.ScheduleActive,
	})
	if err != nil {
		return SaveScheduleResult{}, fmt.Errorf("save schedule: %w", err)
	}

	u.logger.InfoContext(ctx, "schedule saved",
		"schedule_id", saved.ID,
		"workflow_id", saved.WorkflowID,
		"block_id", saved.BlockID,
		"cron_expression", saved.CronExpression,
		"timezone", saved.Timezone,
		"next_run_at", saved.NextRunAt,
	)
	return SaveScheduleResult{Schedule: saved}, nil
}

// findTrigger resolves the block that configures the schedule. An explicit
// block id must exist in the state.
func findTrigger(input SaveScheduleInput) (domain.Block, bool, error) {
	if input.BlockID != "" {
		b, ok := input.State.Block(input.BlockID)
		if !ok {
			return domain.Block{}, false, domain.ErrBlockNotFound
		}
		return b, true, nil
	}
	b, ok := input.State.ScheduleTrigger()
	return b, ok, nil
}

func (u *ScheduleUsecase) removeAll(ctx context.Context, workflowID string) error {
	existing, err := u.schedules.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	for _, s := range existing {
		if _, err := u.schedules.DeleteByWorkflowBlock(ctx, workflowID, s.BlockID); err != nil {
			return fmt.Errorf("remove schedule: %w", err)
		}
		u.logger.InfoContext(ctx, "schedule removed", "workflow_id", workflowID, "block_id", s.BlockID)
	}
	return nil
}

// GetSchedule returns the schedule of a workflow's block, or of its first
// scheduled block when blockID is empty.
func (u *ScheduleUsecase) GetSchedule(ctx context.Context, userID, workflowID, blockID string) (*domain.Schedule, error) {
	if err := u.authorize(ctx, workflowID, userID); err != nil {
		return nil, err
	}

	if blockID != "" {
		s, err := u.schedules.GetByWorkflowBlock(ctx, workflowID, blockID)
		if err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}
		return s, nil
	}

	list, err := u.schedules.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if len(list) == 0 {
		return nil, domain.ErrScheduleNotFound
	}
	return list[0], nil
}

// ReactivateSchedule re-enables a disabled schedule, clearing its failure
// count and computing a fresh next run from now.
func (u *ScheduleUsecase) ReactivateSchedule(ctx context.Context, userID, id string) (*domain.Schedule, error) {
	s, err := u.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next, err := schedule.NextRunAt(s.CronExpression, s.Timezone, u.now())
	if err != nil {
		return nil, &InvalidScheduleError{Message: err.Error()}
	}

	if err := u.schedules.Reactivate(ctx, id, next); err != nil {
		return nil, fmt.Errorf("reactivate schedule: %w", err)
	}

	s.Status = domain.ScheduleActive
	s.FailedCount = 0
	s.LastError = nil
	s.NextRunAt = next
	return s, nil
}

func (u *ScheduleUsecase) DisableSchedule(ctx context.Context, userID, id string) error {
	if _, err := u.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := u.schedules.Disable(ctx, id); err != nil {
		return fmt.Errorf("disable schedule: %w", err)
	}
	return nil
}

func (u *ScheduleUsecase) DeleteSchedule(ctx context.Context, userID, id string) error {
	if _, err := u.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := u.schedules.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func (u *ScheduleUsecase) owned(ctx context.Context, userID, id string) (*domain.Schedule, error) {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if err := u.authorize(ctx, s.WorkflowID, userID); err != nil {
		// Hide schedules of workflows the caller cannot see.
		if errors.Is(err, domain.ErrForbidden) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return s, nil
}

func (u *ScheduleUsecase) authorize(ctx context.Context, workflowID, userID string) error {
	if _, err := u.workflows.GetByID(ctx, workflowID); err != nil {
		return fmt.Errorf("get workflow: %w", err)
	}
	ok, err := u.workflows.HasWriteAccess(ctx, workflowID, userID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	if !ok {
		u.logger.WarnContext(ctx, "schedule access denied", "workflow_id", workflowID, "user_id", userID)
		return domain.ErrForbidden
	}
	return nil
}
