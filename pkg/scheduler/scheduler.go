// Package scheduler advances clinical documentation workflows automatically.
// On every pass it starts at most the first eligible auto-trigger step in
// template order and schedules its completion on an injected clock, so
// auto-advancement is serialized and deterministic under test.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
)

// DefaultDelayUnit is the simulated processing delay per estimated minute.
// It stands in for real documentation time and is configurable, not a tuned
// constant.
const DefaultDelayUnit = 100 * time.Millisecond

// Scheduler owns the auto-advancement of workflows. All state transitions are
// copy-on-write against the persistence layer; the scheduler keeps only the
// in-flight completion timers, one per workflow, so disabling automation can
// cancel them explicitly.
type Scheduler struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	clock       clockwork.Clock
	logger      *slog.Logger
	delayUnit   time.Duration

	mu      sync.Mutex
	pending map[string]*scheduledCompletion
}

type scheduledCompletion struct {
	stepID string
	timer  clockwork.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelayUnit overrides the simulated processing delay per estimated minute.
func WithDelayUnit(delayUnit time.Duration) Option {
	return func(s *Scheduler) {
		s.delayUnit = delayUnit
	}
}

// NewScheduler creates a scheduler. The clock is injectable so tests can
// advance virtual time instead of sleeping.
func NewScheduler(
	persist persistence.Persistence,
	publisher eventbus.EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	scheduler := &Scheduler{
		persistence: persist,
		publisher:   publisher,
		clock:       clock,
		logger:      logger.With("module", "scheduler"),
		delayUnit:   DefaultDelayUnit,
		pending:     make(map[string]*scheduledCompletion),
	}

	for _, opt := range opts {
		opt(scheduler)
	}

	return scheduler
}

// NextAutoStep returns the first step in template order that is pending, has
// all dependencies completed and is marked auto-trigger. Template order is the
// sole tie-break. The decision is pure: calling it twice on the same state
// yields the same step.
func NextAutoStep(workflow *models.ClinicalWorkflow, graph *models.StepGraph) (*models.WorkflowStep, bool) {
	for i := range workflow.Steps {
		step := &workflow.Steps[i]

		if step.Status != models.StepStatusPending || !step.AutoTrigger {
			continue
		}

		if graph.Satisfied(step.ID, workflow.StatusOf) {
			return step, true
		}
	}

	return nil, false
}

// Tick runs one scheduling pass for the workflow. It is idempotent: invoking
// it twice with no intervening state change produces the same next action or
// none. Callers re-invoke it after every external mutation.
func (s *Scheduler) Tick(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	if _, inFlight := s.pending[workflowID]; inFlight {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Completion already scheduled, skipping pass", "workflow_id", workflowID)

		return nil
	}
	s.mu.Unlock()

	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.AutomationEnabled {
		return nil
	}

	graph, err := models.NewStepGraph(workflow.Steps)
	if err != nil {
		return fmt.Errorf("workflow %s has an invalid step graph: %w", workflowID, err)
	}

	// A step left in progress (automation was toggled off and on again) is
	// resumed before any new step is started.
	if step, ok := inProgressAutoStep(workflow); ok {
		s.scheduleCompletion(ctx, workflow, step)

		return nil
	}

	step, ok := NextAutoStep(workflow, graph)
	if !ok {
		return nil
	}

	updated := workflow.Clone()
	started, _ := updated.Step(step.ID)
	started.Status = models.StepStatusInProgress
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, updated); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	s.logger.InfoContext(ctx, "Started step",
		"workflow_id", workflowID,
		"step_id", step.ID,
		"estimated_time", step.EstimatedTime,
	)

	s.publish(ctx, workflowID, events.StepStarted{
		BaseEvent:  events.NewBaseEvent(events.StepStartedEvent),
		WorkflowID: workflowID,
		StepID:     step.ID,
		StepName:   step.Name,
		Auto:       true,
	})

	s.scheduleCompletion(ctx, updated, started)

	return nil
}

// SetAutomation toggles automation for a workflow. Disabling cancels the
// pending completion timer but does not roll back an in-progress step; it
// only stops new auto-advancement. Enabling immediately re-runs a pass.
func (s *Scheduler) SetAutomation(ctx context.Context, workflowID string, enabled bool) (*models.ClinicalWorkflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if workflow.AutomationEnabled == enabled {
		return workflow, nil
	}

	updated := workflow.Clone()
	updated.AutomationEnabled = enabled
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	if !enabled {
		s.cancelScheduled(workflowID)
		s.logger.InfoContext(ctx, "Automation disabled", "workflow_id", workflowID)

		return updated, nil
	}

	s.logger.InfoContext(ctx, "Automation enabled", "workflow_id", workflowID)

	if err := s.Tick(ctx, workflowID); err != nil {
		return nil, err
	}

	return s.persistence.WorkflowByID(ctx, workflowID)
}

// Invalidate drops any scheduled completion for the workflow, typically after
// an external mutation made the scheduled step moot (manual completion, full
// workflow replacement).
func (s *Scheduler) Invalidate(workflowID string) {
	s.cancelScheduled(workflowID)
}

func (s *Scheduler) cancelScheduled(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.pending[workflowID]; ok {
		sc.timer.Stop()
		delete(s.pending, workflowID)
	}
}

func (s *Scheduler) scheduleCompletion(ctx context.Context, workflow *models.ClinicalWorkflow, step *models.WorkflowStep) {
	delay := time.Duration(step.EstimatedTime) * s.delayUnit
	workflowID := workflow.ID
	stepID := step.ID

	// The timer callback must survive the request that started the step.
	timerCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, inFlight := s.pending[workflowID]; inFlight {
		return
	}

	s.pending[workflowID] = &scheduledCompletion{
		stepID: stepID,
		timer: s.clock.AfterFunc(delay, func() {
			s.completeScheduled(timerCtx, workflowID, stepID)
		}),
	}
}

func (s *Scheduler) completeScheduled(ctx context.Context, workflowID, stepID string) {
	s.mu.Lock()
	sc, ok := s.pending[workflowID]
	if !ok || sc.stepID != stepID {
		// Cancelled or superseded while the timer was in flight.
		s.mu.Unlock()

		return
	}

	delete(s.pending, workflowID)
	s.mu.Unlock()

	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch workflow for scheduled completion",
			"workflow_id", workflowID, "error", err)

		return
	}

	step, found := workflow.Step(stepID)
	if !found || step.Status != models.StepStatusInProgress {
		// The workflow changed under the timer (manual completion or a full
		// replacement). Re-run a pass so the next eligible step is picked up.
		s.logger.WarnContext(ctx, "Scheduled step no longer in progress, re-evaluating",
			"workflow_id", workflowID, "step_id", stepID)
		s.tickAndLog(ctx, workflowID)

		return
	}

	updated := workflow.Clone()
	completed, _ := updated.Step(stepID)
	completed.Status = models.StepStatusCompleted
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save workflow after scheduled completion",
			"workflow_id", workflowID, "step_id", stepID, "error", err)

		return
	}

	rate := updated.CompletionRate()

	s.logger.InfoContext(ctx, "Completed step",
		"workflow_id", workflowID,
		"step_id", stepID,
		"completion_rate", rate,
	)

	s.publish(ctx, workflowID, events.StepCompleted{
		BaseEvent:      events.NewBaseEvent(events.StepCompletedEvent),
		WorkflowID:     workflowID,
		StepID:         stepID,
		StepName:       completed.Name,
		Auto:           true,
		CompletionRate: rate,
	})

	if updated.IsComplete() {
		s.publish(ctx, workflowID, events.WorkflowCompleted{
			BaseEvent:      events.NewBaseEvent(events.WorkflowCompletedEvent),
			WorkflowID:     workflowID,
			CompletionRate: rate,
		})

		return
	}

	// The completion of this step is what triggers the next pass, which
	// serializes auto-triggered steps instead of firing them all at once.
	s.tickAndLog(ctx, workflowID)
}

func (s *Scheduler) tickAndLog(ctx context.Context, workflowID string) {
	if err := s.Tick(ctx, workflowID); err != nil {
		s.logger.ErrorContext(ctx, "Scheduling pass failed", "workflow_id", workflowID, "error", err)
	}
}

func (s *Scheduler) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func inProgressAutoStep(workflow *models.ClinicalWorkflow) (*models.WorkflowStep, bool) {
	for i := range workflow.Steps {
		step := &workflow.Steps[i]

		if step.Status == models.StepStatusInProgress && step.AutoTrigger {
			return step, true
		}
	}

	return nil, false
}
