package core

import "testing"

func TestStageOrder(t *testing.T) {
	for i, s := range AllStages() {
		if got := StageOrder(s); got != i {
			t.Errorf("StageOrder(%q) = %d, want %d", s, got, i)
		}
	}
	if StageOrder("bogus") != -1 {
		t.Errorf("unknown stage should have order -1")
	}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		in, want StageName
	}{
		{StagePlan, StageResearch},
		{StageResearch, StageExecute},
		{StageExecute, StageValidate},
		{StageValidate, StageDone},
		{StageDone, ""},
	}
	for _, tt := range tests {
		if got := NextStage(tt.in); got != tt.want {
			t.Errorf("NextStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusIsShortCircuit(t *testing.T) {
	if !StatusNoTasks.IsShortCircuit() || !StatusNoContent.IsShortCircuit() {
		t.Fatalf("no_tasks and no_content are short circuits")
	}
	if StatusValidationCompleted.IsShortCircuit() {
		t.Fatalf("validation_completed is not a short circuit")
	}
}
