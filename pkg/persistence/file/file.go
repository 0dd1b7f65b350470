// Package file provides file-based persistence for workflows and clinical
// records, one JSON document per entity.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Workflows(ctx context.Context) ([]*models.ClinicalWorkflow, error) {
	ids, err := fp.listIDs("workflows")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.ClinicalWorkflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := fp.WorkflowByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.ClinicalWorkflow, error) {
	var workflow models.ClinicalWorkflow

	err := fp.read("workflows", id, &workflow)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.ClinicalWorkflow) error {
	err := fp.write("workflows", workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (fp *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	err := os.Remove(fp.path("workflows", id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (fp *Persistence) Records(ctx context.Context) ([]*models.ClinicalRecord, error) {
	ids, err := fp.listIDs("records")
	if err != nil {
		return nil, err
	}

	records := make([]*models.ClinicalRecord, 0, len(ids))

	for _, id := range ids {
		record, err := fp.RecordByEpisode(ctx, id)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (fp *Persistence) RecordByEpisode(_ context.Context, episodeID string) (*models.ClinicalRecord, error) {
	var record models.ClinicalRecord

	err := fp.read("records", episodeID, &record)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewRecordError("GetByEpisode", episodeID, persistence.ErrRecordNotFound)
		}

		return nil, persistence.NewRecordError("GetByEpisode", episodeID, err)
	}

	return &record, nil
}

func (fp *Persistence) SaveRecord(_ context.Context, record *models.ClinicalRecord) error {
	err := fp.write("records", record.EpisodeID, record)
	if err != nil {
		return persistence.NewRecordError("Save", record.EpisodeID, err)
	}

	return nil
}

func (fp *Persistence) path(kind, id string) string {
	return filepath.Join(fp.root, kind, id+".json")
}

func (fp *Persistence) listIDs(kind string) ([]string, error) {
	dir := filepath.Join(fp.root, kind)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

func (fp *Persistence) read(kind, id string, target any) error {
	body, err := os.ReadFile(fp.path(kind, id))
	if err != nil {
		return err
	}

	return json.Unmarshal(body, target)
}

func (fp *Persistence) write(kind, id string, source any) error {
	if err := os.MkdirAll(filepath.Join(fp.root, kind), dirPerm); err != nil {
		return err
	}

	body, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fp.path(kind, id), body, 0o644)
}
