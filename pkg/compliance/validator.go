package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/models"
)

// Defaults for the documentation window. The exact sizes come from the DOH
// rule set; keep them configurable rather than inferring stricter intent.
const (
	DefaultMaxFutureWindow = 30 * 24 * time.Hour
	DefaultMaxPastWindow   = 365 * 24 * time.Hour
)

// Config holds the tunable validation parameters.
type Config struct {
	MaxFutureWindow time.Duration
	MaxPastWindow   time.Duration
}

// DefaultConfig returns the standard documentation window.
func DefaultConfig() Config {
	return Config{
		MaxFutureWindow: DefaultMaxFutureWindow,
		MaxPastWindow:   DefaultMaxPastWindow,
	}
}

// Validator runs the rule table against clinical records. It is pure and
// reentrant; "now" comes from the injected clock so boundary cases are
// deterministic under test.
type Validator struct {
	rules       []FieldRule
	recordRules []RecordRule
	config      Config
	clock       clockwork.Clock
}

// NewValidator creates a validator with the canonical DOH rule set.
func NewValidator(config Config, clock clockwork.Clock) *Validator {
	return &Validator{
		rules:       DefaultRules(),
		recordRules: DefaultRecordRules(),
		config:      config,
		clock:       clock,
	}
}

// Validate runs every rule regardless of earlier failures and returns all
// issues in check order. The record is never mutated. A record passes only
// when no issue at all was raised.
func (v *Validator) Validate(record *models.ClinicalRecord) models.ValidationResult {
	issues := make([]models.ValidationIssue, 0)

	for _, rule := range v.rules {
		issues = append(issues, v.applyRule(rule, record)...)
	}

	for _, rule := range v.recordRules {
		issues = append(issues, rule(v, record)...)
	}

	return models.NewValidationResult(issues)
}

func (v *Validator) applyRule(rule FieldRule, record *models.ClinicalRecord) []models.ValidationIssue {
	value := rule.Value(record)

	if strings.TrimSpace(value) == "" {
		if !rule.Required {
			return nil
		}

		kind := rule.MissingKind
		if kind == "" {
			kind = models.IssueMissingRequiredField
		}

		// A missing field is reported once; format checks only apply to
		// present values, absence is not malformation.
		return []models.ValidationIssue{{
			Kind:       kind,
			Severity:   models.SeverityHigh,
			Message:    fmt.Sprintf("missing required field: %s", rule.Label),
			Component:  rule.Field,
			Suggestion: fmt.Sprintf("Provide the %s before submission.", rule.Label),
		}}
	}

	issues := make([]models.ValidationIssue, 0)

	if rule.MinLength > 0 && len(strings.TrimSpace(value)) < rule.MinLength {
		issues = append(issues, models.ValidationIssue{
			Kind:       models.IssueFormatError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("%s must be at least %d characters", rule.Label, rule.MinLength),
			Component:  rule.Field,
			Suggestion: fmt.Sprintf("Expand the %s to at least %d characters.", rule.Label, rule.MinLength),
		})
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(strings.TrimSpace(value)) {
		issues = append(issues, models.ValidationIssue{
			Kind:       models.IssueFormatError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("%s %q does not match the expected format %s", rule.Label, value, rule.PatternHint),
			Component:  rule.Field,
			Suggestion: fmt.Sprintf("Use the %s format.", rule.PatternHint),
		})
	}

	if rule.Check != nil {
		issues = append(issues, rule.Check(v, record, value)...)
	}

	return issues
}
