// Package template loads workflow templates and turns them into
// ClinicalWorkflow instances. Template problems are configuration errors:
// they fail at load time and block instantiation.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/carebridge/chartflow/pkg/models"
)

// ErrInvalidTemplate is returned for any template that fails schema or graph
// validation.
var ErrInvalidTemplate = errors.New("invalid workflow template")

// Template is the wire form of a workflow template: workflow-level fields plus
// the ordered step list. TotalEstimatedTime is caller-supplied and not
// validated against the sum of the step estimates.
type Template struct {
	ID                 string          `json:"id,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Priority           models.Priority `json:"priority,omitempty"`
	TotalEstimatedTime int             `json:"total_estimated_time,omitempty"`
	Steps              []TemplateStep  `json:"steps"`
}

// TemplateStep mirrors models.WorkflowStep without a runtime status.
type TemplateStep struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Required      bool     `json:"required,omitempty"`
	EstimatedTime int      `json:"estimated_time,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty"`
	AutoTrigger   bool     `json:"auto_trigger,omitempty"`
}

const templateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "steps"],
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string", "minLength": 3},
		"description": {"type": "string"},
		"priority": {"enum": ["low", "medium", "high", "critical"]},
		"total_estimated_time": {"type": "integer", "minimum": 0},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"required": {"type": "boolean"},
					"estimated_time": {"type": "integer", "minimum": 0},
					"dependencies": {"type": "array", "items": {"type": "string"}},
					"auto_trigger": {"type": "boolean"}
				}
			}
		}
	}
}`

// Loader validates raw template documents and instantiates workflows.
type Loader struct {
	schema *gojsonschema.Schema
}

// NewLoader compiles the embedded template schema.
func NewLoader() (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(templateSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template schema: %w", err)
	}

	return &Loader{schema: schema}, nil
}

// Load parses and validates a raw template document and instantiates a new
// workflow plus its dependency graph. Schema violations, unknown dependency
// ids and cycles all surface as ErrInvalidTemplate.
func (l *Loader) Load(raw []byte, now time.Time) (*models.ClinicalWorkflow, *models.StepGraph, error) {
	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	if !result.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, formatSchemaErrors(result))
	}

	var tmpl Template

	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return Instantiate(tmpl, now)
}

// Instantiate turns a parsed template into a fresh workflow instance with all
// steps pending, building the step graph as the configuration check.
func Instantiate(tmpl Template, now time.Time) (*models.ClinicalWorkflow, *models.StepGraph, error) {
	workflow := &models.ClinicalWorkflow{
		ID:                 tmpl.ID,
		Name:               tmpl.Name,
		Description:        tmpl.Description,
		Priority:           tmpl.Priority,
		TotalEstimatedTime: tmpl.TotalEstimatedTime,
		Steps:              make([]models.WorkflowStep, 0, len(tmpl.Steps)),
		AutomationEnabled:  true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Priority == "" {
		workflow.Priority = models.PriorityMedium
	}

	for _, step := range tmpl.Steps {
		workflow.Steps = append(workflow.Steps, models.WorkflowStep{
			ID:            step.ID,
			Name:          step.Name,
			Status:        models.StepStatusPending,
			Required:      step.Required,
			EstimatedTime: step.EstimatedTime,
			Dependencies:  step.Dependencies,
			AutoTrigger:   step.AutoTrigger,
		})
	}

	graph, err := models.NewStepGraph(workflow.Steps)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return workflow, graph, nil
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	message := ""

	for i, resultError := range result.Errors() {
		if i > 0 {
			message += "; "
		}

		message += resultError.String()
	}

	return message
}
