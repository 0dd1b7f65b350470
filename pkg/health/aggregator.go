package health

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/models"
)

// Aggregator runs every registered checker and folds the category results into
// a single report. One misbehaving checker never takes the report down: its
// category scores zero with a system error issue and the rest still run.
type Aggregator struct {
	registry *Registry
	logger   *slog.Logger
	clock    clockwork.Clock
}

func NewAggregator(registry *Registry, logger *slog.Logger, clock clockwork.Clock) *Aggregator {
	return &Aggregator{
		registry: registry,
		logger:   logger.With("module", "health"),
		clock:    clock,
	}
}

// Run executes all checkers in registration order and assembles the report.
// The report always contains an entry per registered category.
func (a *Aggregator) Run(ctx context.Context, snapshot Snapshot) *models.HealthReport {
	checkers := a.registry.Checkers()
	results := make([]models.CategoryResult, 0, len(checkers))

	for _, checker := range checkers {
		result := a.runChecker(ctx, checker, snapshot)

		if result.Score < 0 {
			result.Score = 0
		} else if result.Score > MaxScore {
			result.Score = MaxScore
		}

		results = append(results, result)
	}

	report := models.NewHealthReport(results, a.clock.Now().UTC())

	a.logger.InfoContext(ctx, "Generated health report",
		"overall_score", report.OverallScore,
		"categories", len(report.Categories),
		"issues", len(report.Issues),
	)

	return report
}

// runChecker isolates one checker run. A panic is converted into a zero-score
// category result so the aggregate never fails wholesale.
func (a *Aggregator) runChecker(ctx context.Context, checker Checker, snapshot Snapshot) (result models.CategoryResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "Health checker panicked",
				"category", checker.Category(), "panic", r)

			result = models.CategoryResult{
				Category: checker.Category(),
				Score:    0,
				Issues: []models.ValidationIssue{{
					Kind:      models.IssueSystemError,
					Severity:  models.SeverityCritical,
					Message:   fmt.Sprintf("health check for %s failed: %v", checker.Category(), r),
					Component: checker.Category(),
				}},
				Recommendations: []string{
					fmt.Sprintf("Investigate the %s health check failure.", checker.Category()),
				},
			}
		}
	}()

	return checker.Check(ctx, snapshot)
}
