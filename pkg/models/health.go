package models

import (
	"math"
	"time"
)

// Health report category names, in the fixed order the aggregator reports them.
const (
	CategoryRecordsIntegrity    = "records_integrity"
	CategoryFormsIntegration    = "forms_integration"
	CategoryWorkflowRobustness  = "workflow_robustness"
	CategoryComplianceAlignment = "compliance_alignment"
	CategoryJourneyTracking     = "journey_tracking"
	CategoryVisitIntegration    = "visit_integration"
)

// CategoryOrder is the canonical reporting order of the six categories.
var CategoryOrder = []string{
	CategoryRecordsIntegrity,
	CategoryFormsIntegration,
	CategoryWorkflowRobustness,
	CategoryComplianceAlignment,
	CategoryJourneyTracking,
	CategoryVisitIntegration,
}

// CategoryResult is the outcome of one health category checker: a 0-100 score,
// the issues found and human-readable remediation recommendations.
type CategoryResult struct {
	Category        string            `json:"category"`
	Score           int               `json:"score"`
	Issues          []ValidationIssue `json:"issues"`
	Recommendations []string          `json:"recommendations"`
}

// HealthReport is the consolidated platform health view. It is recomputed
// wholesale on every run, never incrementally patched.
type HealthReport struct {
	OverallScore    int                       `json:"overall_score"`
	Categories      map[string]CategoryResult `json:"categories"`
	Issues          []ValidationIssue         `json:"issues"`
	Recommendations []string                  `json:"recommendations"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

// NewHealthReport assembles a report from per-category results, computing the
// overall score as the arithmetic mean of the category scores rounded to the
// nearest integer, and rolling up issues and recommendations in category order.
func NewHealthReport(results []CategoryResult, generatedAt time.Time) *HealthReport {
	report := &HealthReport{
		Categories:      make(map[string]CategoryResult, len(results)),
		Issues:          make([]ValidationIssue, 0),
		Recommendations: make([]string, 0),
		GeneratedAt:     generatedAt,
	}

	total := 0

	for _, result := range results {
		report.Categories[result.Category] = result
		report.Issues = append(report.Issues, result.Issues...)
		report.Recommendations = append(report.Recommendations, result.Recommendations...)
		total += result.Score
	}

	if len(results) > 0 {
		report.OverallScore = int(math.Round(float64(total) / float64(len(results))))
	}

	return report
}
