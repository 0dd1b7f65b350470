// Package events defines event types and structures for workflow and
// compliance lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic carrying all chartflow events.
const Topic = "chartflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowCompletedEvent EventType = "workflow.completed"
	StepStartedEvent       EventType = "workflow.step.started"
	StepCompletedEvent     EventType = "workflow.step.completed"

	// Compliance and health events.
	RecordValidatedEvent       EventType = "record.validated"
	HealthReportGeneratedEvent EventType = "health.report.generated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

type WorkflowCreated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	StepCount  int    `json:"step_count"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	WorkflowID     string `json:"workflow_id"`
	CompletionRate int    `json:"completion_rate"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type StepStarted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	StepID     string `json:"step_id"`
	StepName   string `json:"step_name"`
	Auto       bool   `json:"auto"`
}

func (s StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	WorkflowID     string `json:"workflow_id"`
	StepID         string `json:"step_id"`
	StepName       string `json:"step_name"`
	Auto           bool   `json:"auto"`
	CompletionRate int    `json:"completion_rate"`
}

func (s StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type RecordValidated struct {
	BaseEvent

	EpisodeID  string `json:"episode_id"`
	Passed     bool   `json:"passed"`
	IssueCount int    `json:"issue_count"`
}

func (r RecordValidated) GetType() EventType {
	return RecordValidatedEvent
}

type HealthReportGenerated struct {
	BaseEvent

	OverallScore int            `json:"overall_score"`
	Scores       map[string]int `json:"scores"`
	IssueCount   int            `json:"issue_count"`
}

func (h HealthReportGenerated) GetType() EventType {
	return HealthReportGeneratedEvent
}
