// Package persistence provides the data storage abstraction layer for
// workflows and clinical records.
package persistence

import (
	"context"

	"github.com/carebridge/chartflow/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.ClinicalWorkflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.ClinicalWorkflow) error
	WorkflowByID(ctx context.Context, id string) (*models.ClinicalWorkflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	Records(ctx context.Context) ([]*models.ClinicalRecord, error)
	SaveRecord(ctx context.Context, record *models.ClinicalRecord) error
	RecordByEpisode(ctx context.Context, episodeID string) (*models.ClinicalRecord, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
