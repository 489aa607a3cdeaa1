// Package agent defines the engine's view of the external planner and
// executor collaborators. The engine never assumes a transport: the
// production implementation shells out to an agent binary, and tests
// substitute fakes behind the same interfaces.
package agent

import "context"

// Task types a plan may carry.
const (
	TaskCodemod  = "codemod"
	TaskTool     = "tool"
	TaskChat     = "chat"
	TaskAnalysis = "analysis"
)

// Edit is one proposed file change inside a codemod task.
type Edit struct {
	File      string `json:"file"`
	Operation string `json:"operation"`
	Content   string `json:"content,omitempty"`
}

// Task is the structured work unit inside a plan.
type Task struct {
	Type  string `json:"type"`
	Edits []Edit `json:"edits,omitempty"`
}

// Plan is the planner's structured response to a prompt.
type Plan struct {
	Task *Task `json:"task"`
}

// TaskType returns the plan's task type, defaulting to analysis.
func (p *Plan) TaskType() string {
	if p == nil || p.Task == nil || p.Task.Type == "" {
		return TaskAnalysis
	}
	return p.Task.Type
}

// Edits returns the plan's proposed edits, nil-safe.
func (p *Plan) Edits() []Edit {
	if p == nil || p.Task == nil {
		return nil
	}
	return p.Task.Edits
}

// SetEdits replaces the plan's edit list in place.
func (p *Plan) SetEdits(edits []Edit) {
	if p.Task == nil {
		p.Task = &Task{Type: TaskAnalysis}
	}
	p.Task.Edits = edits
}

// Report is the executor's outcome for one plan. The engine classifies
// failure from Message content; there is no structured status.
type Report struct {
	Message string `json:"message"`
}

// RefineRequest carries the context-aware second planning pass: the
// original prompt, the first-pass task, and the current contents of the
// files it references.
type RefineRequest struct {
	Prompt       string            `json:"prompt"`
	BaseTask     *Task             `json:"task"`
	FileContexts map[string]string `json:"files"`
}

// Planner produces structured change plans from natural-language prompts.
type Planner interface {
	BuildPlan(ctx context.Context, prompt string) (*Plan, error)
	RefineWithFiles(ctx context.Context, req RefineRequest) (*Task, error)
}

// Executor applies a plan and reports a free-text outcome.
type Executor interface {
	ExecutePlan(ctx context.Context, plan *Plan) (*Report, error)
}
