package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/ErlanBelekov/workflow-scheduler/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, workflow_id, block_id, cron_expression, timezone, trigger_type,
	next_run_at, last_ran_at, last_queued_at, status, failed_count, last_error,
	created_at, updated_at`

type ScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewScheduleRepository(pool *pgxpool.Pool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, logger: logger.With("component", "schedule_repo")}
}

func (r *ScheduleRepository) Upsert(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO workflow_schedule (
			workflow_id, block_id, cron_expression, timezone, trigger_type,
			next_run_at, status, failed_count
		) VALUES ($1, $2, $3, $4, $5, $6, 'active', 0)
		ON CONFLICT (workflow_id, block_id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			timezone        = EXCLUDED.timezone,
			trigger_type    = EXCLUDED.trigger_type,
			next_run_at     = EXCLUDED.next_run_at,
			status          = 'active',
			failed_count    = 0,
			last_error      = NULL,
			updated_at      = NOW()
		RETURNING `+scheduleColumns,
		s.WorkflowID, s.BlockID, s.CronExpression, s.Timezone, s.TriggerType, s.NextRunAt,
	)

	saved, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return saved, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM workflow_schedule WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByWorkflowBlock(ctx context.Context, workflowID, blockID string) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM workflow_schedule WHERE workflow_id = $1 AND block_id = $2`,
		workflowID, blockID)
	return scanSchedule(row)
}

func (r *ScheduleRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM workflow_schedule WHERE workflow_id = $1 ORDER BY created_at ASC, id ASC`,
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) DeleteByWorkflowBlock(ctx context.Context, workflowID, blockID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM workflow_schedule WHERE workflow_id = $1 AND block_id = $2`,
		workflowID, blockID)
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflow_schedule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleRepository) Reactivate(ctx context.Context, id string, nextRunAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE workflow_schedule
		SET status = 'active', failed_count = 0, last_error = NULL,
		    next_run_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'disabled'`,
		id, nextRunAt)
	if err != nil {
		return fmt.Errorf("reactivate schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish not-found vs already-active
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrScheduleNotDisabled
	}
	return nil
}

func (r *ScheduleRepository) Disable(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE workflow_schedule SET status = 'disabled', updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		id)
	if err != nil {
		return fmt.Errorf("disable schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrScheduleAlreadyDisabled
	}
	return nil
}

// ClaimDue locks due active schedules, advances next_run_at and stamps
// last_queued_at. FOR UPDATE SKIP LOCKED lets several dispatchers run side by
// side without firing the same schedule twice.
func (r *ScheduleRepository) ClaimDue(ctx context.Context, limit int, computeNext repository.ComputeNextFunc) ([]*domain.Schedule, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM workflow_schedule
		WHERE next_run_at <= NOW() AND status = 'active'
		ORDER BY next_run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim schedules: %w", err)
	}

	var due []*domain.Schedule
	for rows.Next() {
		s, scanErr := scanSchedule(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		due = append(due, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	claimed := make([]*domain.Schedule, 0, len(due))
	for _, s := range due {
		next, nextErr := computeNext(s)
		if nextErr != nil {
			msg := nextErr.Error()
			r.logger.Warn("disabling schedule with unusable cron",
				"schedule_id", s.ID,
				"cron_expression", s.CronExpression,
				"timezone", s.Timezone,
				"error", msg,
			)
			if _, err := tx.Exec(ctx, `
				UPDATE workflow_schedule
				SET status = 'disabled', last_error = $2, updated_at = NOW()
				WHERE id = $1`, s.ID, msg); err != nil {
				return nil, fmt.Errorf("disable schedule %s: %w", s.ID, err)
			}
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE workflow_schedule
			SET next_run_at = $2, last_queued_at = NOW(), updated_at = NOW()
			WHERE id = $1`, s.ID, next); err != nil {
			return nil, fmt.Errorf("advance schedule %s: %w", s.ID, err)
		}
		claimed = append(claimed, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return claimed, nil
}

func (r *ScheduleRepository) RecordSuccess(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE workflow_schedule
		SET last_ran_at = NOW(), failed_count = 0, last_error = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record schedule success: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) RecordFailure(ctx context.Context, id, errMsg string, maxFailures int) (bool, error) {
	var status domain.ScheduleStatus
	var wasActive bool
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT status FROM workflow_schedule WHERE id = $1
		)
		UPDATE workflow_schedule
		SET failed_count = failed_count + 1,
		    last_error   = $2,
		    last_ran_at  = NOW(),
		    status       = CASE WHEN failed_count + 1 >= $3 THEN 'disabled' ELSE status END,
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING status, (SELECT status = 'active' FROM prev)`,
		id, errMsg, maxFailures,
	).Scan(&status, &wasActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrScheduleNotFound
		}
		return false, fmt.Errorf("record schedule failure: %w", err)
	}
	return wasActive && status == domain.ScheduleDisabled, nil
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	err := row.Scan(
		&s.ID, &s.WorkflowID, &s.BlockID, &s.CronExpression, &s.Timezone, &s.TriggerType,
		&s.NextRunAt, &s.LastRanAt, &s.LastQueuedAt, &s.Status, &s.FailedCount, &s.LastError,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}
