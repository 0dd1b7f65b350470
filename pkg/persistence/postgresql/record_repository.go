package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
)

// RecordRepository handles clinical-record database operations. The record is
// stored as one JSONB payload keyed by episode id, matching the
// full-replacement update model.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

func (r *RecordRepository) GetAll(ctx context.Context) ([]*models.ClinicalRecord, error) {
	query := `
		SELECT payload
		FROM clinical_records
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clinical records: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ClinicalRecord, 0)

	for rows.Next() {
		var payload []byte

		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan clinical record: %w", err)
		}

		var record models.ClinicalRecord

		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clinical record: %w", err)
		}

		records = append(records, &record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating clinical records: %w", err)
	}

	return records, nil
}

func (r *RecordRepository) GetByEpisode(ctx context.Context, episodeID string) (*models.ClinicalRecord, error) {
	query := `
		SELECT payload
		FROM clinical_records
		WHERE episode_id = $1
	`

	var payload []byte

	err := r.db.QueryRowContext(ctx, query, episodeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByEpisode", episodeID, persistence.ErrRecordNotFound)
		}

		return nil, persistence.NewRecordError("GetByEpisode", episodeID, err)
	}

	var record models.ClinicalRecord

	err = json.Unmarshal(payload, &record)
	if err != nil {
		return nil, persistence.NewRecordError("GetByEpisode", episodeID, err)
	}

	return &record, nil
}

func (r *RecordRepository) Save(ctx context.Context, record *models.ClinicalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return persistence.NewRecordError("Save", record.EpisodeID, err)
	}

	query := `
		INSERT INTO clinical_records (episode_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (episode_id) DO UPDATE SET
			payload = EXCLUDED.payload
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, record.EpisodeID, payload, time.Now().UTC())
	if err != nil {
		return persistence.NewRecordError("Save", record.EpisodeID, err)
	}

	return nil
}
