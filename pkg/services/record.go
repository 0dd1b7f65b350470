package services

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
)

// ChangeNotifier pushes episode change notifications to live dashboard
// subscribers. A nil notifier disables push updates.
type ChangeNotifier interface {
	NotifyEpisode(ctx context.Context, episodeID string) error
}

// RecordService validates and stores clinical records. Validation never
// mutates the record; only passing records are persisted.
type RecordService struct {
	persistence persistence.Persistence
	validator   *compliance.Validator
	publisher   eventbus.EventPublisher
	notifier    ChangeNotifier
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewRecordService(
	persist persistence.Persistence,
	validator *compliance.Validator,
	publisher eventbus.EventPublisher,
	notifier ChangeNotifier,
	clock clockwork.Clock,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		persistence: persist,
		validator:   validator,
		publisher:   publisher,
		notifier:    notifier,
		clock:       clock,
		logger:      logger.With("module", "record_service"),
	}
}

// Validate runs the compliance rule set without persisting anything.
func (s *RecordService) Validate(_ context.Context, record *models.ClinicalRecord) models.ValidationResult {
	return s.validator.Validate(record)
}

// Submit validates the record and, on a pass, persists it and notifies
// subscribers. A failing record is rejected with its full issue list; the
// caller decides how to present the issues.
func (s *RecordService) Submit(ctx context.Context, record *models.ClinicalRecord) (models.ValidationResult, error) {
	result := s.validator.Validate(record)

	s.publish(ctx, record.EpisodeID, events.RecordValidated{
		BaseEvent:  events.NewBaseEvent(events.RecordValidatedEvent),
		EpisodeID:  record.EpisodeID,
		Passed:     result.Passed,
		IssueCount: len(result.Issues),
	})

	if !result.Passed {
		s.logger.InfoContext(ctx, "Record rejected",
			"episode_id", record.EpisodeID, "issues", len(result.Issues))

		return result, &ServiceError{Op: "submit record", ID: record.EpisodeID, Err: ErrRecordRejected}
	}

	stored := record.Clone()
	stored.SubmittedAt = s.clock.Now().UTC()

	if err := s.persistence.SaveRecord(ctx, stored); err != nil {
		return result, &ServiceError{Op: "submit record", ID: record.EpisodeID, Err: err}
	}

	s.logger.InfoContext(ctx, "Record accepted", "episode_id", record.EpisodeID)

	if s.notifier != nil {
		if err := s.notifier.NotifyEpisode(ctx, record.EpisodeID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to notify episode subscribers",
				"episode_id", record.EpisodeID, "error", err)
		}
	}

	return result, nil
}

// FetchByEpisode returns the stored record for an episode.
func (s *RecordService) FetchByEpisode(ctx context.Context, episodeID string) (*models.ClinicalRecord, error) {
	return s.persistence.RecordByEpisode(ctx, episodeID)
}

// List returns all stored records.
func (s *RecordService) List(ctx context.Context) ([]*models.ClinicalRecord, error) {
	return s.persistence.Records(ctx)
}

func (s *RecordService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
