package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/ErlanBelekov/workflow-scheduler/internal/metrics"
	"github.com/ErlanBelekov/workflow-scheduler/internal/transport/http/middleware"
	"github.com/ErlanBelekov/workflow-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

// scheduleUsecaser is the subset of ScheduleUsecase the handler needs.
type scheduleUsecaser interface {
	SaveSchedule(ctx context.Context, input usecase.SaveScheduleInput) (usecase.SaveScheduleResult, error)
	GetSchedule(ctx context.Context, userID, workflowID, blockID string) (*domain.Schedule, error)
	ReactivateSchedule(ctx context.Context, userID, id string) (*domain.Schedule, error)
	DisableSchedule(ctx context.Context, userID, id string) error
	DeleteSchedule(ctx context.Context, userID, id string) error
}

type ScheduleHandler struct {
	uc     scheduleUsecaser
	logger *slog.Logger
}

func NewScheduleHandler(uc scheduleUsecaser, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{uc: uc, logger: logger.With("component", "schedule_handler")}
}

type saveScheduleRequest struct {
	WorkflowID string               `json:"workflowId" binding:"required,max=256"`
	BlockID    string               `json:"blockId"    binding:"max=256"`
	State      domain.WorkflowState `json:"state"`
}

type scheduleRef struct {
	ID string `json:"id"`
}

type saveScheduleResponse struct {
	Message        string       `json:"message"`
	Schedule       *scheduleRef `json:"schedule,omitempty"`
	NextRunAt      *time.Time   `json:"nextRunAt,omitempty"`
	CronExpression string       `json:"cronExpression,omitempty"`
}

type scheduleResponse struct {
	ID             string                `json:"id"`
	WorkflowID     string                `json:"workflowId"`
	BlockID        string                `json:"blockId"`
	CronExpression string                `json:"cronExpression"`
	Timezone       string                `json:"timezone"`
	TriggerType    string                `json:"triggerType"`
	Status         domain.ScheduleStatus `json:"status"`
	IsDisabled     bool                  `json:"isDisabled"`
	NextRunAt      time.Time             `json:"nextRunAt"`
	LastRanAt      *time.Time            `json:"lastRanAt"`
	FailedCount    int                   `json:"failedCount"`
	LastError      *string               `json:"lastError"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func toScheduleResponse(s *domain.Schedule) *scheduleResponse {
	return &scheduleResponse{
		ID:             s.ID,
		WorkflowID:     s.WorkflowID,
		BlockID:        s.BlockID,
		CronExpression: s.CronExpression,
		Timezone:       s.Timezone,
		TriggerType:    s.TriggerType,
		Status:         s.Status,
		IsDisabled:     s.Status == domain.ScheduleDisabled,
		NextRunAt:      s.NextRunAt,
		LastRanAt:      s.LastRanAt,
		FailedCount:    s.FailedCount,
		LastError:      s.LastError,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// POST /schedules
// Creates, replaces or removes the schedule described by the workflow's
// trigger block.
func (h *ScheduleHandler) Save(ctx *gin.Context) {
	var req saveScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		metrics.SavesTotal.WithLabelValues("invalid").Inc()
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.uc.SaveSchedule(ctx.Request.Context(), usecase.SaveScheduleInput{
		UserID:     middleware.UserID(ctx),
		WorkflowID: req.WorkflowID,
		BlockID:    req.BlockID,
		State:      req.State,
	})
	if err != nil {
		var invalid *usecase.InvalidScheduleError
		if errors.As(err, &invalid) {
			metrics.SavesTotal.WithLabelValues("invalid").Inc()
			ctx.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message})
			return
		}
		metrics.SavesTotal.WithLabelValues("error").Inc()
		h.writeError(ctx, "save schedule", err, "workflow_id", req.WorkflowID)
		return
	}

	if res.Removed {
		metrics.SavesTotal.WithLabelValues("removed").Inc()
		ctx.JSON(http.StatusOK, saveScheduleResponse{Message: "Schedule removed"})
		return
	}

	metrics.SavesTotal.WithLabelValues("saved").Inc()
	ctx.JSON(http.StatusOK, saveScheduleResponse{
		Message:        "Schedule updated",
		Schedule:       &scheduleRef{ID: res.Schedule.ID},
		NextRunAt:      &res.Schedule.NextRunAt,
		CronExpression: res.Schedule.CronExpression,
	})
}

// GET /schedules?workflowId=&blockId=
// Answers {"schedule": null} when the workflow has no schedule.
func (h *ScheduleHandler) Get(ctx *gin.Context) {
	workflowID := ctx.Query("workflowId")
	if workflowID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "workflowId is required"})
		return
	}

	s, err := h.uc.GetSchedule(ctx.Request.Context(), middleware.UserID(ctx), workflowID, ctx.Query("blockId"))
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"schedule": nil})
			return
		}
		h.writeError(ctx, "get schedule", err, "workflow_id", workflowID)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"schedule": toScheduleResponse(s)})
}

// POST /schedules/:id/reactivate
func (h *ScheduleHandler) Reactivate(ctx *gin.Context) {
	id := ctx.Param("id")

	s, err := h.uc.ReactivateSchedule(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		var invalid *usecase.InvalidScheduleError
		if errors.As(err, &invalid) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message})
			return
		}
		h.writeError(ctx, "reactivate schedule", err, "schedule_id", id)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Schedule activated successfully",
		"nextRunAt": s.NextRunAt,
	})
}

// POST /schedules/:id/disable
func (h *ScheduleHandler) Disable(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.DisableSchedule(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		h.writeError(ctx, "disable schedule", err, "schedule_id", id)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// DELETE /schedules/:id
func (h *ScheduleHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.DeleteSchedule(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		h.writeError(ctx, "delete schedule", err, "schedule_id", id)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// writeError maps domain errors to responses. Anything unrecognised is logged
// and hidden behind a 500.
func (h *ScheduleHandler) writeError(ctx *gin.Context, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": errForbidden})
	case errors.Is(err, domain.ErrWorkflowNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errWorkflowNotFound})
	case errors.Is(err, domain.ErrScheduleNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
	case errors.Is(err, domain.ErrBlockNotFound):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errBlockNotFound})
	case errors.Is(err, domain.ErrScheduleAlreadyDisabled):
		ctx.JSON(http.StatusConflict, gin.H{"error": errScheduleAlreadyDisable})
	case errors.Is(err, domain.ErrScheduleNotDisabled):
		ctx.JSON(http.StatusConflict, gin.H{"error": errScheduleNotDisabled})
	default:
		h.logger.ErrorContext(ctx.Request.Context(), op, append(attrs, "error", err)...)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
