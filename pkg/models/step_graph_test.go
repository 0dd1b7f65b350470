package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/models"
)

func steps(defs ...models.WorkflowStep) []models.WorkflowStep {
	return defs
}

func TestNewStepGraph_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		steps   []models.WorkflowStep
		wantErr error
	}{
		{
			name: "valid chain",
			steps: steps(
				models.WorkflowStep{ID: "a"},
				models.WorkflowStep{ID: "b", Dependencies: []string{"a"}},
				models.WorkflowStep{ID: "c", Dependencies: []string{"b"}},
			),
		},
		{
			name: "valid diamond",
			steps: steps(
				models.WorkflowStep{ID: "a"},
				models.WorkflowStep{ID: "b", Dependencies: []string{"a"}},
				models.WorkflowStep{ID: "c", Dependencies: []string{"a"}},
				models.WorkflowStep{ID: "d", Dependencies: []string{"b", "c"}},
			),
		},
		{
			name: "unknown dependency",
			steps: steps(
				models.WorkflowStep{ID: "a", Dependencies: []string{"ghost"}},
			),
			wantErr: models.ErrUnknownDependency,
		},
		{
			name: "two step cycle",
			steps: steps(
				models.WorkflowStep{ID: "a", Dependencies: []string{"b"}},
				models.WorkflowStep{ID: "b", Dependencies: []string{"a"}},
			),
			wantErr: models.ErrDependencyCycle,
		},
		{
			name: "self cycle",
			steps: steps(
				models.WorkflowStep{ID: "a", Dependencies: []string{"a"}},
			),
			wantErr: models.ErrDependencyCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			graph, err := models.NewStepGraph(tt.steps)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, graph)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, graph)
		})
	}
}

func TestStepGraph_Satisfied(t *testing.T) {
	t.Parallel()

	graph, err := models.NewStepGraph(steps(
		models.WorkflowStep{ID: "a"},
		models.WorkflowStep{ID: "b", Dependencies: []string{"a"}},
	))
	require.NoError(t, err)

	statusOf := func(status models.StepStatus) func(string) models.StepStatus {
		return func(string) models.StepStatus { return status }
	}

	// No dependencies: always satisfied.
	assert.True(t, graph.Satisfied("a", statusOf(models.StepStatusPending)))

	assert.True(t, graph.Satisfied("b", statusOf(models.StepStatusCompleted)))
	assert.False(t, graph.Satisfied("b", statusOf(models.StepStatusPending)))
	assert.False(t, graph.Satisfied("b", statusOf(models.StepStatusInProgress)))

	// A skipped dependency never satisfies its dependents.
	assert.False(t, graph.Satisfied("b", statusOf(models.StepStatusSkipped)))
}

func TestStepGraph_Roots(t *testing.T) {
	t.Parallel()

	graph, err := models.NewStepGraph(steps(
		models.WorkflowStep{ID: "a"},
		models.WorkflowStep{ID: "b", Dependencies: []string{"a"}},
		models.WorkflowStep{ID: "c"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, graph.Roots())
	assert.Equal(t, []string{"a"}, graph.Dependencies("b"))
}
