package domain_test

import (
	"testing"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
)

func TestScheduleTrigger_PrefersScheduleBlock(t *testing.T) {
	state := domain.WorkflowState{Blocks: map[string]domain.Block{
		"starter-1": {Type: domain.BlockTypeStarter, SubBlocks: map[string]domain.SubBlock{
			"startWorkflow": {Value: "schedule"},
		}},
		"sched-b": {Type: domain.BlockTypeSchedule},
		"sched-a": {Type: domain.BlockTypeSchedule},
	}}

	b, ok := state.ScheduleTrigger()
	if !ok {
		t.Fatal("expected a trigger block")
	}
	if b.ID != "sched-a" {
		t.Errorf("trigger = %q, want sched-a", b.ID)
	}
}

func TestScheduleTrigger_SkipsDisabledScheduleBlocks(t *testing.T) {
	off := false
	state := domain.WorkflowState{Blocks: map[string]domain.Block{
		"sched": {Type: domain.BlockTypeSchedule, Enabled: &off},
	}}

	if _, ok := state.ScheduleTrigger(); ok {
		t.Error("disabled schedule block must not be picked")
	}
}

func TestScheduleTrigger_StarterInScheduleMode(t *testing.T) {
	state := domain.WorkflowState{Blocks: map[string]domain.Block{
		"manual": {Type: domain.BlockTypeStarter, SubBlocks: map[string]domain.SubBlock{
			"startWorkflow": {Value: "manual"},
		}},
		"cron": {Type: domain.BlockTypeStarter, SubBlocks: map[string]domain.SubBlock{
			"startWorkflow": {Value: "schedule"},
		}},
	}}

	b, ok := state.ScheduleTrigger()
	if !ok || b.ID != "cron" {
		t.Fatalf("trigger = %q (ok=%v), want cron", b.ID, ok)
	}
}

func TestScheduleTrigger_NoTrigger(t *testing.T) {
	state := domain.WorkflowState{Blocks: map[string]domain.Block{
		"agent": {Type: "agent"},
	}}
	if _, ok := state.ScheduleTrigger(); ok {
		t.Error("expected no trigger block")
	}
}

func TestBlock_SubBlockValue(t *testing.T) {
	b := domain.Block{SubBlocks: map[string]domain.SubBlock{"timezone": {Value: "Europe/Paris"}}}
	if got := b.SubBlockValue("timezone"); got != "Europe/Paris" {
		t.Errorf("SubBlockValue = %v", got)
	}
	if got := b.SubBlockValue("missing"); got != nil {
		t.Errorf("missing sub-block = %v, want nil", got)
	}
}
