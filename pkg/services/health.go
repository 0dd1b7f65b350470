package services

import (
	"context"
	"log/slog"

	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/health"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
)

// HealthService assembles the snapshot for the category checkers and runs the
// aggregator. Reports are recomputed wholesale on every call.
type HealthService struct {
	persistence persistence.Persistence
	aggregator  *health.Aggregator
	publisher   eventbus.EventPublisher
	features    map[string]bool
	logger      *slog.Logger
}

func NewHealthService(
	persist persistence.Persistence,
	aggregator *health.Aggregator,
	publisher eventbus.EventPublisher,
	features map[string]bool,
	logger *slog.Logger,
) *HealthService {
	return &HealthService{
		persistence: persist,
		aggregator:  aggregator,
		publisher:   publisher,
		features:    features,
		logger:      logger.With("module", "health_service"),
	}
}

// GenerateReport loads the current platform state and produces a full health
// report. Persistence failures for one entity kind degrade that slice of the
// snapshot rather than aborting the report.
func (s *HealthService) GenerateReport(ctx context.Context) (*models.HealthReport, error) {
	workflows, err := s.persistence.Workflows(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load workflows for health report", "error", err)

		workflows = nil
	}

	records, err := s.persistence.Records(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load records for health report", "error", err)

		records = nil
	}

	report := s.aggregator.Run(ctx, health.Snapshot{
		Workflows: workflows,
		Records:   records,
		Features:  s.features,
	})

	scores := make(map[string]int, len(report.Categories))
	for category, result := range report.Categories {
		scores[category] = result.Score
	}

	s.publish(ctx, "health-report", events.HealthReportGenerated{
		BaseEvent:    events.NewBaseEvent(events.HealthReportGeneratedEvent),
		OverallScore: report.OverallScore,
		Scores:       scores,
		IssueCount:   len(report.Issues),
	})

	return report, nil
}

func (s *HealthService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
