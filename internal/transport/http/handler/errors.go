package handler

const (
	errInternalServer         = "Internal server error"
	errForbidden              = "You do not have permission to modify this workflow"
	errWorkflowNotFound       = "Workflow not found"
	errBlockNotFound          = "Block not found in workflow state"
	errScheduleNotFound       = "Schedule not found"
	errScheduleAlreadyDisable = "Schedule is already disabled"
	errScheduleNotDisabled    = "Schedule is not disabled"
)
