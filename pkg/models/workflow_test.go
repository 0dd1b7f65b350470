package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/models"
)

func threeStepWorkflow(statuses ...models.StepStatus) *models.ClinicalWorkflow {
	workflow := &models.ClinicalWorkflow{
		ID:   "wf-1",
		Name: "Admission Documentation",
		Steps: []models.WorkflowStep{
			{ID: "a", Name: "Initial Assessment", Status: models.StepStatusPending},
			{ID: "b", Name: "Care Plan", Status: models.StepStatusPending, Dependencies: []string{"a"}},
			{ID: "c", Name: "Physician Review", Status: models.StepStatusPending, Dependencies: []string{"b"}},
		},
		Priority: models.PriorityMedium,
	}

	for i, status := range statuses {
		workflow.Steps[i].Status = status
	}

	return workflow
}

func TestClinicalWorkflow_CompletionRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []models.StepStatus
		want     int
	}{
		{
			name:     "none completed",
			statuses: nil,
			want:     0,
		},
		{
			name:     "one of three",
			statuses: []models.StepStatus{models.StepStatusCompleted},
			want:     33,
		},
		{
			name:     "two of three",
			statuses: []models.StepStatus{models.StepStatusCompleted, models.StepStatusCompleted},
			want:     67,
		},
		{
			name: "all completed",
			statuses: []models.StepStatus{
				models.StepStatusCompleted, models.StepStatusCompleted, models.StepStatusCompleted,
			},
			want: 100,
		},
		{
			name: "skipped does not count",
			statuses: []models.StepStatus{
				models.StepStatusCompleted, models.StepStatusSkipped, models.StepStatusPending,
			},
			want: 33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			workflow := threeStepWorkflow(tt.statuses...)

			assert.Equal(t, tt.want, workflow.CompletionRate())
		})
	}
}

func TestClinicalWorkflow_CompletionRateEmpty(t *testing.T) {
	t.Parallel()

	workflow := &models.ClinicalWorkflow{ID: "empty"}

	assert.Equal(t, 0, workflow.CompletionRate())
	assert.True(t, workflow.IsComplete())
}

func TestClinicalWorkflow_IsComplete(t *testing.T) {
	t.Parallel()

	workflow := threeStepWorkflow(
		models.StepStatusCompleted, models.StepStatusCompleted, models.StepStatusCompleted,
	)
	assert.True(t, workflow.IsComplete())

	workflow = threeStepWorkflow(models.StepStatusCompleted)
	assert.False(t, workflow.IsComplete())
}

func TestClinicalWorkflow_Clone(t *testing.T) {
	t.Parallel()

	original := threeStepWorkflow()
	clone := original.Clone()

	step, found := clone.Step("b")
	require.True(t, found)
	step.Status = models.StepStatusCompleted
	step.Dependencies[0] = "mutated"

	assert.Equal(t, models.StepStatusPending, original.Steps[1].Status)
	assert.Equal(t, []string{"a"}, original.Steps[1].Dependencies)
}

func TestClinicalWorkflow_StatusOf(t *testing.T) {
	t.Parallel()

	workflow := threeStepWorkflow(models.StepStatusCompleted)

	assert.Equal(t, models.StepStatusCompleted, workflow.StatusOf("a"))
	assert.Equal(t, models.StepStatusPending, workflow.StatusOf("unknown"))
}
