// Package models defines the core domain models for clinical documentation workflows.
package models

import (
	"math"
	"slices"
	"time"
)

// StepStatus represents the lifecycle state of a single workflow step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusSkipped    StepStatus = "skipped"
)

// Priority ranks a workflow for dashboard ordering.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// WorkflowStep is one unit of work in a clinical documentation workflow.
// Status is mutated only by the scheduler or an explicit complete-step command;
// all mutation goes through a Clone of the owning workflow.
type WorkflowStep struct {
	ID            string     `json:"id"             validate:"required"`
	Name          string     `json:"name"           validate:"required"`
	Status        StepStatus `json:"status"         validate:"required"`
	Required      bool       `json:"required"`
	EstimatedTime int        `json:"estimated_time" validate:"min=0"` // minutes
	Dependencies  []string   `json:"dependencies"`
	AutoTrigger   bool       `json:"auto_trigger"`
}

// ClinicalWorkflow is an instantiated documentation workflow for one episode
// of care. The step order is the template order and is the sole tie-break for
// scheduling decisions.
type ClinicalWorkflow struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"        validate:"required,min=3"`
	Description        string         `json:"description"`
	Steps              []WorkflowStep `json:"steps"       validate:"required,min=1,dive"`
	TotalEstimatedTime int            `json:"total_estimated_time"` // caller-supplied, informational
	Priority           Priority       `json:"priority"    validate:"required"`
	AutomationEnabled  bool           `json:"automation_enabled"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          *time.Time     `json:"deleted_at,omitempty"`
}

// Clone returns a deep copy. All workflow updates are copy-on-write: callers
// clone, mutate the clone, and replace the stored value wholesale.
func (w *ClinicalWorkflow) Clone() *ClinicalWorkflow {
	clone := *w

	clone.Steps = make([]WorkflowStep, len(w.Steps))
	for i, step := range w.Steps {
		clone.Steps[i] = step
		clone.Steps[i].Dependencies = slices.Clone(step.Dependencies)
	}

	return &clone
}

// Step returns the step with the given id, in template order.
func (w *ClinicalWorkflow) Step(stepID string) (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return &w.Steps[i], true
		}
	}

	return nil, false
}

// StatusOf reports the status of a step by id, StepStatusPending for unknown ids.
func (w *ClinicalWorkflow) StatusOf(stepID string) StepStatus {
	step, ok := w.Step(stepID)
	if !ok {
		return StepStatusPending
	}

	return step.Status
}

// CompletedCount returns the number of completed steps.
func (w *ClinicalWorkflow) CompletedCount() int {
	count := 0

	for i := range w.Steps {
		if w.Steps[i].Status == StepStatusCompleted {
			count++
		}
	}

	return count
}

// CompletionRate is always derived from step statuses, never stored, so it can
// not go stale: round(100 * completed / total).
func (w *ClinicalWorkflow) CompletionRate() int {
	if len(w.Steps) == 0 {
		return 0
	}

	return int(math.Round(100 * float64(w.CompletedCount()) / float64(len(w.Steps))))
}

// IsComplete reports the terminal state: every step completed.
func (w *ClinicalWorkflow) IsComplete() bool {
	return w.CompletedCount() == len(w.Steps)
}
