package domain

import (
	"errors"
	"time"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrBlockNotFound    = errors.New("block not found")
)

// Block types that can start a workflow on a schedule.
const (
	BlockTypeSchedule = "schedule"
	BlockTypeStarter  = "starter"
)

type Workflow struct {
	ID          string
	UserID      string
	WorkspaceID *string
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowState is the editor graph sent by the client when a workflow is saved.
type WorkflowState struct {
	Blocks map[string]Block `json:"blocks"`
	Edges  []Edge           `json:"edges"`
	Loops  map[string]any   `json:"loops"`
}

type Block struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Name      string              `json:"name"`
	Enabled   *bool               `json:"enabled,omitempty"`
	SubBlocks map[string]SubBlock `json:"subBlocks"`
}

type SubBlock struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// SubBlockValue returns the raw value of a sub-block, or nil.
func (b Block) SubBlockValue(id string) any {
	sb, ok := b.SubBlocks[id]
	if !ok {
		return nil
	}
	return sb.Value
}

// Block returns the block keyed by id.
func (s WorkflowState) Block(id string) (Block, bool) {
	b, ok := s.Blocks[id]
	if ok && b.ID == "" {
		b.ID = id
	}
	return b, ok
}

func (s WorkflowState) blocks() []Block {
	out := make([]Block, 0, len(s.Blocks))
	for id := range s.Blocks {
		b, _ := s.Block(id)
		out = append(out, b)
	}
	return out
}

// ScheduleTrigger finds the block that drives the workflow's schedule: the
// first enabled schedule block, else a starter block configured to start on a
// schedule. Map iteration is unordered, so blocks are compared by ID to keep
// the choice stable.
func (s WorkflowState) ScheduleTrigger() (Block, bool) {
	var found Block
	ok := false
	for _, b := range s.blocks() {
		if b.Type != BlockTypeSchedule || (b.Enabled != nil && !*b.Enabled) {
			continue
		}
		if !ok || b.ID < found.ID {
			found, ok = b, true
		}
	}
	if ok {
		return found, true
	}

	for _, b := range s.blocks() {
		if b.Type != BlockTypeStarter {
			continue
		}
		if mode, _ := b.SubBlockValue("startWorkflow").(string); mode == TriggerTypeSchedule {
			if !ok || b.ID < found.ID {
				found, ok = b, true
			}
		}
	}
	return found, ok
}
