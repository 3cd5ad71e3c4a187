package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/ErlanBelekov/workflow-scheduler/internal/email"
	ctxlog "github.com/ErlanBelekov/workflow-scheduler/internal/log"
	"github.com/ErlanBelekov/workflow-scheduler/internal/metrics"
	"github.com/ErlanBelekov/workflow-scheduler/internal/repository"
	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
)

type triggerer interface {
	Trigger(ctx context.Context, s *domain.Schedule) ExecutionResult
}

type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	// MaxFailures consecutive failed triggers disable a schedule.
	MaxFailures int
}

// Dispatcher claims due schedules, triggers their workflows and records the
// outcome. Several dispatchers may share one database.
type Dispatcher struct {
	schedules repository.ScheduleRepository
	workflows repository.WorkflowRepository
	users     repository.UserRepository
	executor  triggerer
	mailer    email.Sender
	logger    *slog.Logger
	cfg       DispatcherConfig
	sem       chan struct{}
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewDispatcher(
	schedules repository.ScheduleRepository,
	workflows repository.WorkflowRepository,
	users repository.UserRepository,
	executor triggerer,
	mailer email.Sender,
	logger *slog.Logger,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		schedules: schedules,
		workflows: workflows,
		users:     users,
		executor:  executor,
		mailer:    mailer,
		logger:    logger.With("component", "dispatcher"),
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.Concurrency),
		now:       time.Now,
	}
}

// Start runs until ctx is cancelled, then waits for in-flight triggers.
func (d *Dispatcher) Start(ctx context.Context) {
	metrics.DispatcherStartTime.SetToCurrentTime()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started",
		"interval", d.cfg.Interval,
		"batch_size", d.cfg.BatchSize,
		"concurrency", d.cfg.Concurrency,
	)

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			d.logger.Info("dispatcher shut down")
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.DispatchCycleDuration.Observe(time.Since(start).Seconds()) }()

	claimed, err := d.schedules.ClaimDue(ctx, d.cfg.BatchSize, d.computeNext)
	if err != nil {
		d.logger.Error("claim due schedules", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}
	metrics.ClaimedTotal.Add(float64(len(claimed)))
	d.logger.Info("claimed schedules", "count", len(claimed))

	for i, s := range claimed {
		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			d.dropClaimed(claimed[i:])
			return
		}
		d.wg.Add(1)
		go func(s *domain.Schedule) {
			defer d.wg.Done()
			defer func() { <-d.sem }()
			metrics.TriggersInFlight.Inc()
			defer metrics.TriggersInFlight.Dec()
			d.run(ctxlog.WithScheduleID(ctx, s.ID), s)
		}(s)
	}
}

// dropClaimed records schedules that were claimed, and so already advanced,
// but never triggered because the dispatcher is shutting down.
func (d *Dispatcher) dropClaimed(dropped []*domain.Schedule) {
	ids := make([]string, len(dropped))
	for i, s := range dropped {
		ids[i] = s.ID
	}
	metrics.TriggersTotal.WithLabelValues("dropped").Add(float64(len(dropped)))
	d.logger.Warn("shutdown dropped claimed schedules", "count", len(ids), "schedule_ids", ids)
}

// computeNext skips runs missed while the dispatcher was down: the next run is
// the first one after both the claimed slot and now.
func (d *Dispatcher) computeNext(s *domain.Schedule) (time.Time, error) {
	from := d.now()
	if s.NextRunAt.After(from) {
		from = s.NextRunAt
	}
	return schedule.NextRunAt(s.CronExpression, s.Timezone, from)
}

func (d *Dispatcher) run(ctx context.Context, s *domain.Schedule) {
	metrics.TriggerLag.Observe(d.now().Sub(s.NextRunAt).Seconds())

	result := d.executor.Trigger(ctx, s)

	if result.OK() {
		metrics.TriggerDuration.WithLabelValues("success").Observe(result.Duration.Seconds())
		metrics.TriggersTotal.WithLabelValues("success").Inc()
		if err := d.schedules.RecordSuccess(ctx, s.ID); err != nil {
			d.logger.ErrorContext(ctx, "record trigger success", "error", err)
		}
		d.logger.InfoContext(ctx, "workflow triggered",
			"workflow_id", s.WorkflowID,
			"scheduled_at", s.NextRunAt,
			"duration", result.Duration,
		)
		return
	}

	errMsg := result.Message()
	metrics.TriggerDuration.WithLabelValues("failure").Observe(result.Duration.Seconds())
	metrics.TriggersTotal.WithLabelValues("failure").Inc()

	disabled, err := d.schedules.RecordFailure(ctx, s.ID, errMsg, d.cfg.MaxFailures)
	if err != nil {
		d.logger.ErrorContext(ctx, "record trigger failure", "error", err)
		return
	}
	d.logger.WarnContext(ctx, "workflow trigger failed",
		"workflow_id", s.WorkflowID,
		"error", errMsg,
		"failed_count", s.FailedCount+1,
	)

	if disabled {
		metrics.AutoDisabledTotal.Inc()
		d.logger.WarnContext(ctx, "schedule disabled after consecutive failures",
			"workflow_id", s.WorkflowID,
			"max_failures", d.cfg.MaxFailures,
		)
		s.Status = domain.ScheduleDisabled
		s.FailedCount = d.cfg.MaxFailures
		s.LastError = &errMsg
		if err := d.notifyDisabled(ctx, s); err != nil {
			d.logger.ErrorContext(ctx, "notify schedule disabled", "error", err)
		}
	}
}

func (d *Dispatcher) notifyDisabled(ctx context.Context, s *domain.Schedule) error {
	wf, err := d.workflows.GetByID(ctx, s.WorkflowID)
	if err != nil {
		return fmt.Errorf("get workflow: %w", err)
	}
	owner, err := d.users.FindByID(ctx, wf.UserID)
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}
	if owner.Email == "" {
		d.logger.InfoContext(ctx, "owner has no email, skipping notification", "user_id", owner.ID)
		return nil
	}

	subject, body := email.ScheduleDisabled(wf, s)
	return d.mailer.Send(ctx, owner.Email, subject, body)
}
