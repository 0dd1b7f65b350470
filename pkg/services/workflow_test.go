package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/log"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/persistence/file"
	"github.com/carebridge/chartflow/pkg/scheduler"
	"github.com/carebridge/chartflow/pkg/services"
	"github.com/carebridge/chartflow/pkg/template"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) typesSeen() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.GetType())
	}

	return types
}

func newWorkflowService(t *testing.T) (*services.WorkflowService, *file.Persistence, *capturePublisher, *clockwork.FakeClock) {
	t.Helper()

	persist := file.NewPersistence(t.TempDir())
	publisher := &capturePublisher{}
	clock := clockwork.NewFakeClock()
	logger := log.WithModule("services_test")

	sched := scheduler.NewScheduler(persist, publisher, clock, logger,
		scheduler.WithDelayUnit(100*time.Millisecond))

	loader, err := template.NewLoader()
	require.NoError(t, err)

	service := services.NewWorkflowService(persist, sched, loader, publisher, clock, logger)

	return service, persist, publisher, clock
}

const manualTemplate = `{
	"name": "Discharge Documentation",
	"steps": [
		{"id": "summary", "name": "Discharge Summary", "estimated_time": 20},
		{"id": "review", "name": "Physician Review", "estimated_time": 10, "dependencies": ["summary"]}
	]
}`

func TestWorkflowService_CreateFromTemplate(t *testing.T) {
	t.Parallel()

	service, _, publisher, _ := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.True(t, workflow.AutomationEnabled)
	assert.Equal(t, 0, workflow.CompletionRate())
	assert.Contains(t, publisher.typesSeen(), events.WorkflowCreatedEvent)
}

func TestWorkflowService_CreateFromTemplateRejectsInvalid(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)

	_, err := service.CreateFromTemplate(context.Background(), []byte(`{"steps": []}`))
	require.ErrorIs(t, err, template.ErrInvalidTemplate)
}

func TestWorkflowService_CompleteStepUnknownStepIsNoOp(t *testing.T) {
	t.Parallel()

	service, persist, _, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	returned, err := service.CompleteStep(ctx, created.ID, "ghost")

	// Caller error, not a crash: the workflow comes back unchanged.
	require.True(t, services.IsStepNotFound(err))
	require.NotNil(t, returned)
	assert.Equal(t, 0, returned.CompletionRate())

	stored, err := persist.WorkflowByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CompletionRate())
}

func TestWorkflowService_CompleteStepTwiceIsRejected(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	_, err = service.CompleteStep(ctx, created.ID, "summary")
	require.NoError(t, err)

	_, err = service.CompleteStep(ctx, created.ID, "summary")
	require.ErrorIs(t, err, services.ErrStepAlreadyCompleted)
}

func TestWorkflowService_ManualCompletionToFullWorkflow(t *testing.T) {
	t.Parallel()

	service, _, publisher, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	updated, err := service.CompleteStep(ctx, created.ID, "summary")
	require.NoError(t, err)
	assert.Equal(t, 50, updated.CompletionRate())

	updated, err = service.CompleteStep(ctx, created.ID, "review")
	require.NoError(t, err)
	assert.Equal(t, 100, updated.CompletionRate())
	assert.True(t, updated.IsComplete())

	assert.Contains(t, publisher.typesSeen(), events.WorkflowCompletedEvent)
}

func TestWorkflowService_CompleteStepUnknownWorkflow(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)

	_, err := service.CompleteStep(context.Background(), "ghost", "summary")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowService_SetAutomation(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	updated, err := service.SetAutomation(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.AutomationEnabled)

	updated, err = service.SetAutomation(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.AutomationEnabled)
}

func TestWorkflowService_ReplaceRejectsBrokenGraph(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	replacement := created.Clone()
	replacement.Steps[0].Dependencies = []string{"ghost"}

	_, err = service.Replace(ctx, replacement)
	require.ErrorIs(t, err, models.ErrUnknownDependency)
}

func TestWorkflowService_Delete(t *testing.T) {
	t.Parallel()

	service, _, _, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := service.CreateFromTemplate(ctx, []byte(manualTemplate))
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.FetchByID(ctx, created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
