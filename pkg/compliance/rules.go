// Package compliance validates clinical records against the DOH documentation
// rule set. Rules are declarative table entries iterated uniformly: adding a
// rule is a data change, not new branching logic.
package compliance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/carebridge/chartflow/pkg/models"
)

var (
	// emiratesIDPattern matches the national identifier: four dash-separated
	// numeric groups of lengths 3, 4, 7 and 1, e.g. 784-1985-1234567-8.
	emiratesIDPattern = regexp.MustCompile(`^\d{3}-\d{4}-\d{7}-\d$`)

	// serviceTimePattern matches 24-hour HH:MM.
	serviceTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// FieldRule is one declarative validation entry. Value extracts the field from
// the record; the presence, length and pattern constraints are applied
// uniformly, and Check adds any field-specific semantics on a present value.
type FieldRule struct {
	Field       string // component tag on emitted issues
	Label       string
	Required    bool
	MinLength   int
	Pattern     *regexp.Regexp
	PatternHint string
	MissingKind models.IssueKind // defaults to missing_required_field
	Value       func(record *models.ClinicalRecord) string
	Check       func(v *Validator, record *models.ClinicalRecord, value string) []models.ValidationIssue
}

// RecordRule is a whole-record check appended after the field rules.
type RecordRule func(v *Validator, record *models.ClinicalRecord) []models.ValidationIssue

// DefaultRules is the canonical DOH rule table for a clinical documentation
// record, in check (and therefore issue) order.
func DefaultRules() []FieldRule {
	return []FieldRule{
		{
			Field:    "patient_id",
			Label:    "patient identifier",
			Required: true,
			Value:    func(r *models.ClinicalRecord) string { return r.PatientID },
		},
		{
			Field:    "service_date",
			Label:    "service date",
			Required: true,
			Value:    func(r *models.ClinicalRecord) string { return r.ServiceDate },
			Check:    checkServiceDate,
		},
		{
			Field:       "service_time",
			Label:       "service time",
			Required:    true,
			Pattern:     serviceTimePattern,
			PatternHint: "24-hour HH:MM",
			Value:       func(r *models.ClinicalRecord) string { return r.ServiceTime },
		},
		{
			Field:    "provider_id",
			Label:    "provider identifier",
			Required: true,
			Value:    func(r *models.ClinicalRecord) string { return r.ProviderID },
		},
		{
			Field:    "service_location",
			Label:    "service location",
			Required: true,
			Value:    func(r *models.ClinicalRecord) string { return r.ServiceLocation },
		},
		{
			Field:     "provider_name",
			Label:     "provider name",
			Required:  true,
			MinLength: 2,
			Value:     func(r *models.ClinicalRecord) string { return r.ProviderName },
		},
		{
			Field:     "provider_license",
			Label:     "provider license",
			Required:  true,
			MinLength: 5,
			Value:     func(r *models.ClinicalRecord) string { return r.ProviderLicense },
			Check:     checkLicenseExpiry,
		},
		{
			Field:       "emirates_id",
			Label:       "Emirates ID",
			Required:    true,
			Pattern:     emiratesIDPattern,
			PatternHint: "NNN-NNNN-NNNNNNN-N",
			Value:       func(r *models.ClinicalRecord) string { return r.EmiratesID },
		},
		{
			Field:     "clinical_findings",
			Label:     "clinical findings",
			Required:  true,
			MinLength: 10,
			Value:     func(r *models.ClinicalRecord) string { return r.ClinicalFindings },
		},
		{
			Field:     "interventions",
			Label:     "interventions",
			Required:  true,
			MinLength: 10,
			Value:     func(r *models.ClinicalRecord) string { return r.Interventions },
		},
		{
			Field:       "signature",
			Label:       "provider signature",
			Required:    true,
			MissingKind: models.IssueMissingSignature,
			Value: func(r *models.ClinicalRecord) string {
				if r.Signed {
					return "signed"
				}

				return ""
			},
		},
		{
			Field:    "document_type",
			Label:    "document type",
			Required: true,
			Value:    func(r *models.ClinicalRecord) string { return r.DocumentType },
		},
	}
}

// DefaultRecordRules returns the whole-record checks, currently the
// nine-domain assessment completeness rule.
func DefaultRecordRules() []RecordRule {
	return []RecordRule{checkDomainCompleteness}
}

// checkServiceDate enforces the documentation window: the service date must
// parse and fall no more than the configured window into the future or past.
func checkServiceDate(v *Validator, _ *models.ClinicalRecord, value string) []models.ValidationIssue {
	serviceDate, err := parseDate(value)
	if err != nil {
		return []models.ValidationIssue{{
			Kind:       models.IssueFormatError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("service date %q is not a valid date", value),
			Component:  "service_date",
			Suggestion: "Use the YYYY-MM-DD format.",
		}}
	}

	now := v.clock.Now()

	if serviceDate.After(now.Add(v.config.MaxFutureWindow)) {
		return []models.ValidationIssue{{
			Kind:       models.IssueRangeError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("service date %s is more than %d days in the future", value, int(v.config.MaxFutureWindow.Hours()/24)),
			Component:  "service_date",
			Suggestion: "Correct the service date; future-dated documentation is not accepted beyond the allowed window.",
		}}
	}

	if serviceDate.Before(now.Add(-v.config.MaxPastWindow)) {
		return []models.ValidationIssue{{
			Kind:       models.IssueRangeError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("service date %s is more than %d days in the past", value, int(v.config.MaxPastWindow.Hours()/24)),
			Component:  "service_date",
			Suggestion: "Verify the service date; late documentation beyond the allowed window needs a corrected date.",
		}}
	}

	return nil
}

// checkLicenseExpiry treats an expiry at or before now as expired: the
// boundary is exclusive of the present moment.
func checkLicenseExpiry(v *Validator, record *models.ClinicalRecord, _ string) []models.ValidationIssue {
	if strings.TrimSpace(record.LicenseExpiry) == "" {
		return nil
	}

	expiry, err := parseDate(record.LicenseExpiry)
	if err != nil {
		return []models.ValidationIssue{{
			Kind:       models.IssueFormatError,
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("license expiry %q is not a valid date", record.LicenseExpiry),
			Component:  "provider_license",
			Suggestion: "Use the YYYY-MM-DD format for the license expiry date.",
		}}
	}

	if !expiry.After(v.clock.Now()) {
		return []models.ValidationIssue{{
			Kind:       models.IssueExpiredCredential,
			Severity:   models.SeverityCritical,
			Message:    fmt.Sprintf("provider license expired on %s", record.LicenseExpiry),
			Component:  "provider_license",
			Suggestion: "Renew the provider license before submitting documentation.",
		}}
	}

	return nil
}

// checkDomainCompleteness reports all missing assessment domains as a single
// aggregated issue naming the missing set, not one issue per domain.
func checkDomainCompleteness(_ *Validator, record *models.ClinicalRecord) []models.ValidationIssue {
	missing := record.MissingDomains()
	if len(missing) == 0 {
		return nil
	}

	return []models.ValidationIssue{{
		Kind:       models.IssueIncompleteAssessment,
		Severity:   models.SeverityHigh,
		Message:    "incomplete nursing assessment, missing domains: " + strings.Join(missing, ", "),
		Component:  "domain_assessments",
		Suggestion: "Document every assessment domain before submission.",
	}}
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}

	return time.Parse(time.RFC3339, value)
}
