package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/models"
)

// Penalty weights per category. These feed the score only; the severity label
// on each issue is assigned separately and never derived from the penalty.
const (
	penaltyNoRecords         = 20
	penaltyUnsignedRecord    = 15
	penaltyThinFindings      = 10
	penaltyMissingAssessment = 10

	penaltyMissingCriticalForm = 25
	penaltyMissingOptionalForm = 10

	penaltyBrokenGraph        = 25
	penaltyStalledWorkflow    = 20
	penaltyAutomationDisabled = 5

	penaltyFailingRecord     = 15
	penaltyExpiredCredential = 25

	penaltyMissingEpisodeLink = 15
	penaltyJourneyFeatureOff  = 20

	penaltyVisitSyncOff  = 20
	penaltyUnsyncedVisit = 10
)

// RecordsIntegrityChecker audits the stored clinical records themselves:
// signatures, narrative depth and assessment completeness.
type RecordsIntegrityChecker struct{}

func NewRecordsIntegrityChecker() *RecordsIntegrityChecker {
	return &RecordsIntegrityChecker{}
}

func (c *RecordsIntegrityChecker) Category() string {
	return models.CategoryRecordsIntegrity
}

func (c *RecordsIntegrityChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	if len(snapshot.Records) == 0 {
		card.add(penaltyNoRecords, models.ValidationIssue{
			Kind:      models.IssueNoRecords,
			Severity:  models.SeverityMedium,
			Message:   "no clinical records have been submitted",
			Component: c.Category(),
		}, "Submit at least one clinical record per active episode.")

		return card.result()
	}

	for _, record := range snapshot.Records {
		if !record.Signed {
			card.add(penaltyUnsignedRecord, models.ValidationIssue{
				Kind:      models.IssueMissingSignature,
				Severity:  models.SeverityHigh,
				Message:   fmt.Sprintf("record for episode %s is unsigned", record.EpisodeID),
				Component: c.Category(),
			}, "Sign every record before submission.")
		}

		if len(strings.TrimSpace(record.ClinicalFindings)) < 10 {
			card.add(penaltyThinFindings, models.ValidationIssue{
				Kind:      models.IssueFormatError,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("record for episode %s has insufficient clinical findings", record.EpisodeID),
				Component: c.Category(),
			}, "Document clinical findings in full sentences, not abbreviations.")
		}

		if missing := record.MissingDomains(); len(missing) > 0 {
			card.add(penaltyMissingAssessment, models.ValidationIssue{
				Kind:      models.IssueIncompleteAssessment,
				Severity:  models.SeverityHigh,
				Message:   fmt.Sprintf("record for episode %s is missing assessment domains: %s", record.EpisodeID, strings.Join(missing, ", ")),
				Component: c.Category(),
			}, "Complete all nine assessment domains for every visit.")
		}
	}

	return card.result()
}

// FormsIntegrationChecker verifies the specialty form integrations the
// documentation flow depends on. Missing critical integrations cost more than
// missing optional ones.
type FormsIntegrationChecker struct{}

func NewFormsIntegrationChecker() *FormsIntegrationChecker {
	return &FormsIntegrationChecker{}
}

func (c *FormsIntegrationChecker) Category() string {
	return models.CategoryFormsIntegration
}

func (c *FormsIntegrationChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	critical := []string{FeatureWoundAssessmentForm, FeatureVitalSignsForm}
	optional := []string{FeaturePainScaleForm, FeatureDiabeticFootForm}

	for _, feature := range critical {
		if !snapshot.Enabled(feature) {
			card.add(penaltyMissingCriticalForm, models.ValidationIssue{
				Kind:      models.IssueMissingIntegration,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("critical form integration %s is not enabled", feature),
				Component: c.Category(),
			}, fmt.Sprintf("Enable the %s integration.", feature))
		}
	}

	for _, feature := range optional {
		if !snapshot.Enabled(feature) {
			card.add(penaltyMissingOptionalForm, models.ValidationIssue{
				Kind:      models.IssueMissingIntegration,
				Severity:  models.SeverityLow,
				Message:   fmt.Sprintf("optional form integration %s is not enabled", feature),
				Component: c.Category(),
			}, fmt.Sprintf("Consider enabling the %s integration.", feature))
		}
	}

	return card.result()
}

// WorkflowRobustnessChecker looks for workflows that cannot make progress:
// broken dependency graphs, steps blocked behind skipped dependencies and
// disabled automation.
type WorkflowRobustnessChecker struct{}

func NewWorkflowRobustnessChecker() *WorkflowRobustnessChecker {
	return &WorkflowRobustnessChecker{}
}

func (c *WorkflowRobustnessChecker) Category() string {
	return models.CategoryWorkflowRobustness
}

func (c *WorkflowRobustnessChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	for _, workflow := range snapshot.Workflows {
		graph, err := models.NewStepGraph(workflow.Steps)
		if err != nil {
			card.add(penaltyBrokenGraph, models.ValidationIssue{
				Kind:      models.IssueSystemError,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("workflow %s has an invalid step graph: %v", workflow.ID, err),
				Component: c.Category(),
			}, "Fix the workflow template dependency configuration.")

			continue
		}

		for _, step := range workflow.Steps {
			if step.Status != models.StepStatusPending {
				continue
			}

			if blockedBySkipped(workflow, graph, step.ID) {
				card.add(penaltyStalledWorkflow, models.ValidationIssue{
					Kind:      models.IssueStalledWorkflow,
					Severity:  models.SeverityHigh,
					Message:   fmt.Sprintf("step %s in workflow %s is blocked behind a skipped dependency", step.ID, workflow.ID),
					Component: c.Category(),
				}, "Review skipped steps; dependents of a skipped step can never start.")
			}
		}

		if !workflow.AutomationEnabled && !workflow.IsComplete() {
			card.add(penaltyAutomationDisabled, models.ValidationIssue{
				Kind:      models.IssueAutomationDisabled,
				Severity:  models.SeverityLow,
				Message:   fmt.Sprintf("automation is disabled for workflow %s", workflow.ID),
				Component: c.Category(),
			}, "Re-enable workflow automation once the manual intervention is done.")
		}
	}

	return card.result()
}

func blockedBySkipped(workflow *models.ClinicalWorkflow, graph *models.StepGraph, stepID string) bool {
	for _, dep := range graph.Dependencies(stepID) {
		if workflow.StatusOf(dep) == models.StepStatusSkipped {
			return true
		}
	}

	return false
}

// ComplianceAlignmentChecker runs the DOH record validator over the submitted
// records and penalizes non-compliant documentation.
type ComplianceAlignmentChecker struct {
	validator *compliance.Validator
}

func NewComplianceAlignmentChecker(validator *compliance.Validator) *ComplianceAlignmentChecker {
	return &ComplianceAlignmentChecker{validator: validator}
}

func (c *ComplianceAlignmentChecker) Category() string {
	return models.CategoryComplianceAlignment
}

func (c *ComplianceAlignmentChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	for _, record := range snapshot.Records {
		result := c.validator.Validate(record)
		if result.Passed {
			continue
		}

		expired := false

		for _, issue := range result.Issues {
			if issue.Kind == models.IssueExpiredCredential {
				expired = true
			}
		}

		card.add(penaltyFailingRecord, models.ValidationIssue{
			Kind:      models.IssueComplianceGap,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("record for episode %s fails DOH validation with %d issue(s)", record.EpisodeID, len(result.Issues)),
			Component: c.Category(),
		}, "Resolve record validation issues before claim submission.")

		if expired {
			card.add(penaltyExpiredCredential, models.ValidationIssue{
				Kind:      models.IssueExpiredCredential,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("record for episode %s was documented under an expired license", record.EpisodeID),
				Component: c.Category(),
			}, "Suspend documentation under expired credentials and renew the license.")
		}
	}

	return card.result()
}

// JourneyTrackingChecker verifies that records are linked into patient
// journeys and that journey tracking features are on.
type JourneyTrackingChecker struct{}

func NewJourneyTrackingChecker() *JourneyTrackingChecker {
	return &JourneyTrackingChecker{}
}

func (c *JourneyTrackingChecker) Category() string {
	return models.CategoryJourneyTracking
}

func (c *JourneyTrackingChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	for _, feature := range []string{FeatureJourneyMilestones, FeatureEpisodeTimeline} {
		if !snapshot.Enabled(feature) {
			card.add(penaltyJourneyFeatureOff, models.ValidationIssue{
				Kind:      models.IssueMissingIntegration,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("journey tracking feature %s is not enabled", feature),
				Component: c.Category(),
			}, fmt.Sprintf("Enable the %s feature.", feature))
		}
	}

	for _, record := range snapshot.Records {
		if strings.TrimSpace(record.EpisodeID) == "" {
			card.add(penaltyMissingEpisodeLink, models.ValidationIssue{
				Kind:      models.IssueMissingJourneyEvent,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("record for patient %s is not linked to an episode", record.PatientID),
				Component: c.Category(),
			}, "Link every record to its care episode.")
		}
	}

	return card.result()
}

// VisitIntegrationChecker verifies bedside visit capture: the sync feature
// must be on and every record needs a documented visit time.
type VisitIntegrationChecker struct{}

func NewVisitIntegrationChecker() *VisitIntegrationChecker {
	return &VisitIntegrationChecker{}
}

func (c *VisitIntegrationChecker) Category() string {
	return models.CategoryVisitIntegration
}

func (c *VisitIntegrationChecker) Check(_ context.Context, snapshot Snapshot) models.CategoryResult {
	card := newScoreCard(c.Category())

	if !snapshot.Enabled(FeatureBedsideVisitSync) {
		card.add(penaltyVisitSyncOff, models.ValidationIssue{
			Kind:      models.IssueMissingIntegration,
			Severity:  models.SeverityHigh,
			Message:   "bedside visit synchronization is not enabled",
			Component: c.Category(),
		}, "Enable bedside visit synchronization.")
	}

	for _, record := range snapshot.Records {
		if strings.TrimSpace(record.ServiceTime) == "" {
			card.add(penaltyUnsyncedVisit, models.ValidationIssue{
				Kind:      models.IssueUnsyncedVisit,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("record for episode %s has no documented visit time", record.EpisodeID),
				Component: c.Category(),
			}, "Capture the bedside visit time on every record.")
		}
	}

	return card.result()
}
