package domain

import (
	"errors"
	"time"
)

var (
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrInvalidSchedule         = errors.New("invalid schedule")
	ErrScheduleAlreadyDisabled = errors.New("schedule is already disabled")
	ErrScheduleNotDisabled     = errors.New("schedule is not disabled")
)

type ScheduleStatus string

const (
	ScheduleActive   ScheduleStatus = "active"
	ScheduleDisabled ScheduleStatus = "disabled"
)

// TriggerTypeSchedule marks executions started by the dispatcher.
const TriggerTypeSchedule = "schedule"

// Schedule is the persisted schedule of one trigger block. A workflow has at
// most one schedule per block.
type Schedule struct {
	ID             string
	WorkflowID     string
	BlockID        string
	CronExpression string
	Timezone       string
	TriggerType    string
	NextRunAt      time.Time
	LastRanAt      *time.Time
	LastQueuedAt   *time.Time
	Status         ScheduleStatus
	FailedCount    int
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
