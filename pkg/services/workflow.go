// Package services implements the application operations behind the HTTP and
// worker surfaces: workflow lifecycle, record submission and health reporting.
package services

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/scheduler"
	"github.com/carebridge/chartflow/pkg/template"
)

// WorkflowService drives workflow instantiation, manual step completion and
// automation toggling. Every mutation re-runs a scheduling pass so automatic
// advancement resumes immediately.
type WorkflowService struct {
	persistence persistence.Persistence
	scheduler   *scheduler.Scheduler
	loader      *template.Loader
	publisher   eventbus.EventPublisher
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewWorkflowService(
	persist persistence.Persistence,
	sched *scheduler.Scheduler,
	loader *template.Loader,
	publisher eventbus.EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) *WorkflowService {
	return &WorkflowService{
		persistence: persist,
		scheduler:   sched,
		loader:      loader,
		publisher:   publisher,
		clock:       clock,
		logger:      logger.With("module", "workflow_service"),
	}
}

// CreateFromTemplate validates a raw template document, persists the new
// workflow and kicks off the first scheduling pass.
func (s *WorkflowService) CreateFromTemplate(ctx context.Context, raw []byte) (*models.ClinicalWorkflow, error) {
	workflow, _, err := s.loader.Load(raw, s.clock.Now().UTC())
	if err != nil {
		return nil, &ServiceError{Op: "create workflow", Err: err}
	}

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, &ServiceError{Op: "create workflow", ID: workflow.ID, Err: err}
	}

	s.logger.InfoContext(ctx, "Created workflow",
		"workflow_id", workflow.ID, "name", workflow.Name, "steps", len(workflow.Steps))

	s.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowCreatedEvent),
		WorkflowID: workflow.ID,
		Name:       workflow.Name,
		StepCount:  len(workflow.Steps),
	})

	if err := s.scheduler.Tick(ctx, workflow.ID); err != nil {
		s.logger.ErrorContext(ctx, "Initial scheduling pass failed",
			"workflow_id", workflow.ID, "error", err)
	}

	return s.persistence.WorkflowByID(ctx, workflow.ID)
}

// List returns all workflows.
func (s *WorkflowService) List(ctx context.Context) ([]*models.ClinicalWorkflow, error) {
	return s.persistence.Workflows(ctx)
}

// FetchByID returns one workflow.
func (s *WorkflowService) FetchByID(ctx context.Context, id string) (*models.ClinicalWorkflow, error) {
	return s.persistence.WorkflowByID(ctx, id)
}

// CompleteStep marks a step completed on behalf of a caller. An unknown step
// id is a caller error: the workflow is returned unchanged alongside
// ErrStepNotFound. Completing an already finished step is likewise rejected
// without mutation. A successful completion invalidates any scheduled
// auto-completion and re-runs a scheduling pass.
func (s *WorkflowService) CompleteStep(ctx context.Context, workflowID, stepID string) (*models.ClinicalWorkflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, &ServiceError{Op: "complete step", ID: workflowID, Err: err}
	}

	step, found := workflow.Step(stepID)
	if !found {
		s.logger.WarnContext(ctx, "Step completion for unknown step",
			"workflow_id", workflowID, "step_id", stepID)

		return workflow, &ServiceError{Op: "complete step", ID: stepID, Err: ErrStepNotFound}
	}

	if step.Status == models.StepStatusCompleted || step.Status == models.StepStatusSkipped {
		return workflow, &ServiceError{Op: "complete step", ID: stepID, Err: ErrStepAlreadyCompleted}
	}

	updated := workflow.Clone()
	completed, _ := updated.Step(stepID)
	completed.Status = models.StepStatusCompleted
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, updated); err != nil {
		return nil, &ServiceError{Op: "complete step", ID: workflowID, Err: err}
	}

	rate := updated.CompletionRate()

	s.logger.InfoContext(ctx, "Step completed manually",
		"workflow_id", workflowID, "step_id", stepID, "completion_rate", rate)

	s.publish(ctx, workflowID, events.StepCompleted{
		BaseEvent:      events.NewBaseEvent(events.StepCompletedEvent),
		WorkflowID:     workflowID,
		StepID:         stepID,
		StepName:       completed.Name,
		Auto:           false,
		CompletionRate: rate,
	})

	if updated.IsComplete() {
		s.publish(ctx, workflowID, events.WorkflowCompleted{
			BaseEvent:      events.NewBaseEvent(events.WorkflowCompletedEvent),
			WorkflowID:     workflowID,
			CompletionRate: rate,
		})
	}

	// The manually completed step may be the one a timer was waiting on.
	s.scheduler.Invalidate(workflowID)

	if err := s.scheduler.Tick(ctx, workflowID); err != nil {
		s.logger.ErrorContext(ctx, "Scheduling pass after manual completion failed",
			"workflow_id", workflowID, "error", err)
	}

	return s.persistence.WorkflowByID(ctx, workflowID)
}

// SetAutomation toggles automation for a workflow.
func (s *WorkflowService) SetAutomation(ctx context.Context, workflowID string, enabled bool) (*models.ClinicalWorkflow, error) {
	workflow, err := s.scheduler.SetAutomation(ctx, workflowID, enabled)
	if err != nil {
		return nil, &ServiceError{Op: "set automation", ID: workflowID, Err: err}
	}

	return workflow, nil
}

// Replace swaps a workflow wholesale. The replacement must carry a valid step
// graph; any scheduled completion for the old instance is dropped.
func (s *WorkflowService) Replace(ctx context.Context, workflow *models.ClinicalWorkflow) (*models.ClinicalWorkflow, error) {
	if _, err := models.NewStepGraph(workflow.Steps); err != nil {
		return nil, &ServiceError{Op: "replace workflow", ID: workflow.ID, Err: err}
	}

	updated := workflow.Clone()
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, updated); err != nil {
		return nil, &ServiceError{Op: "replace workflow", ID: workflow.ID, Err: err}
	}

	s.scheduler.Invalidate(workflow.ID)

	if err := s.scheduler.Tick(ctx, workflow.ID); err != nil {
		s.logger.ErrorContext(ctx, "Scheduling pass after replacement failed",
			"workflow_id", workflow.ID, "error", err)
	}

	return s.persistence.WorkflowByID(ctx, workflow.ID)
}

// Delete soft-deletes a workflow and drops any scheduled completion.
func (s *WorkflowService) Delete(ctx context.Context, workflowID string) error {
	s.scheduler.Invalidate(workflowID)

	if err := s.persistence.DeleteWorkflow(ctx, workflowID); err != nil {
		return &ServiceError{Op: "delete workflow", ID: workflowID, Err: err}
	}

	s.logger.InfoContext(ctx, "Deleted workflow", "workflow_id", workflowID)

	return nil
}

func (s *WorkflowService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
