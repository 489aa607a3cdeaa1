package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Subprocess talks to the external agent binary over JSON on stdin/stdout.
// One binary serves both roles via subcommands: `<binary> plan`,
// `<binary> refine`, and `<binary> execute`.
type Subprocess struct {
	BinaryPath string
	WorkDir    string
}

// NewSubprocess creates a subprocess agent client.
func NewSubprocess(binaryPath, workDir string) *Subprocess {
	if binaryPath == "" {
		binaryPath = "gfagent"
	}
	return &Subprocess{
		BinaryPath: resolveBinaryPath(binaryPath),
		WorkDir:    workDir,
	}
}

// BuildPlan asks the planner for a structured change plan.
func (s *Subprocess) BuildPlan(ctx context.Context, prompt string) (*Plan, error) {
	req := struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt}

	var plan Plan
	if err := s.invoke(ctx, "plan", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// RefineWithFiles runs the context-aware second planning pass.
func (s *Subprocess) RefineWithFiles(ctx context.Context, req RefineRequest) (*Task, error) {
	var task Task
	if err := s.invoke(ctx, "refine", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ExecutePlan hands the filtered plan to the executor.
func (s *Subprocess) ExecutePlan(ctx context.Context, plan *Plan) (*Report, error) {
	var report Report
	if err := s.invoke(ctx, "execute", plan, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Subprocess) invoke(ctx context.Context, subcommand string, request, response any) error {
	input, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("cannot marshal %s request: %w", subcommand, err)
	}

	cmd := exec.CommandContext(ctx, s.BinaryPath, subcommand)
	cmd.Dir = s.WorkDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return fmt.Errorf("agent binary %q not found in PATH", s.BinaryPath)
		}
		return fmt.Errorf("agent %s failed: %w", subcommand, err)
	}

	if err := json.Unmarshal(out, response); err != nil {
		return fmt.Errorf("cannot decode agent %s response: %w", subcommand, err)
	}
	return nil
}

// resolveBinaryPath finds a binary, checking PATH and home-relative names
func resolveBinaryPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	if strings.HasPrefix(name, "~") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, name[1:])
	}
	return name
}
