package agent

import "testing"

func TestPlanTaskType(t *testing.T) {
	tests := []struct {
		name     string
		plan     *Plan
		expected string
	}{
		{name: "nil plan", plan: nil, expected: TaskAnalysis},
		{name: "nil task", plan: &Plan{}, expected: TaskAnalysis},
		{name: "empty type", plan: &Plan{Task: &Task{}}, expected: TaskAnalysis},
		{name: "codemod", plan: &Plan{Task: &Task{Type: TaskCodemod}}, expected: TaskCodemod},
		{name: "tool", plan: &Plan{Task: &Task{Type: TaskTool}}, expected: TaskTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.TaskType(); got != tt.expected {
				t.Errorf("TaskType() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPlanEditsNilSafe(t *testing.T) {
	var p *Plan
	if got := p.Edits(); got != nil {
		t.Errorf("nil plan Edits() = %v, want nil", got)
	}
	if got := (&Plan{}).Edits(); got != nil {
		t.Errorf("taskless plan Edits() = %v, want nil", got)
	}
}

func TestPlanSetEdits(t *testing.T) {
	p := &Plan{}
	p.SetEdits([]Edit{{File: "a.txt"}})
	if p.TaskType() != TaskAnalysis {
		t.Errorf("materialized task type = %q, want analysis", p.TaskType())
	}
	if len(p.Edits()) != 1 || p.Edits()[0].File != "a.txt" {
		t.Errorf("Edits() = %v", p.Edits())
	}

	p.SetEdits(nil)
	if len(p.Edits()) != 0 {
		t.Errorf("Edits() after clearing = %v", p.Edits())
	}
}
