package models

// Severity labels an issue for UI sorting and filtering. It is independent of
// any score penalty a checker applies for the same issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// IssueKind is the machine-readable classification of a validation issue.
type IssueKind string

const (
	IssueMissingRequiredField  IssueKind = "missing_required_field"
	IssueFormatError           IssueKind = "format_error"
	IssueRangeError            IssueKind = "range_error"
	IssueExpiredCredential     IssueKind = "expired_credential"
	IssueIncompleteAssessment  IssueKind = "incomplete_assessment"
	IssueMissingSignature      IssueKind = "missing_signature"
	IssueMissingIntegration    IssueKind = "missing_integration"
	IssueStalledWorkflow       IssueKind = "stalled_workflow"
	IssueAutomationDisabled    IssueKind = "automation_disabled"
	IssueNoRecords             IssueKind = "no_records"
	IssueComplianceGap         IssueKind = "compliance_gap"
	IssueMissingJourneyEvent   IssueKind = "missing_journey_event"
	IssueUnsyncedVisit         IssueKind = "unsynced_visit"
	IssueSystemError           IssueKind = "system_error"
)

// ValidationIssue is a single reported problem. Issues are pure values and are
// never mutated after creation.
type ValidationIssue struct {
	Kind       IssueKind `json:"kind"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Component  string    `json:"component,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// ValidationResult is the outcome of running a rule set against a record.
// Issues keep insertion order, which is check order.
type ValidationResult struct {
	Passed bool              `json:"passed"`
	Issues []ValidationIssue `json:"issues"`
}

// NewValidationResult builds a result whose pass flag is derived from the
// issue list: a record passes only when no issue was raised.
func NewValidationResult(issues []ValidationIssue) ValidationResult {
	if issues == nil {
		issues = []ValidationIssue{}
	}

	return ValidationResult{
		Passed: len(issues) == 0,
		Issues: issues,
	}
}
