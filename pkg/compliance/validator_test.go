package compliance_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestValidator() *compliance.Validator {
	return compliance.NewValidator(compliance.DefaultConfig(), clockwork.NewFakeClockAt(testNow))
}

// completeRecord returns a record that passes every rule.
func completeRecord() *models.ClinicalRecord {
	assessments := make(map[string]string, len(models.AssessmentDomains))
	for _, domain := range models.AssessmentDomains {
		assessments[domain] = "assessed, no concerns noted"
	}

	return &models.ClinicalRecord{
		EpisodeID:         "ep-100",
		PatientID:         "pt-100",
		ServiceDate:       "2026-03-09",
		ServiceTime:       "14:30",
		ServiceLocation:   "patient home",
		ProviderID:        "prov-7",
		ProviderName:      "Amina Hassan",
		ProviderLicense:   "DOH-12345",
		LicenseExpiry:     "2027-01-01",
		EmiratesID:        "784-1985-1234567-8",
		ClinicalFindings:  "Wound healing well, no signs of infection.",
		Interventions:     "Dressing changed, patient education provided.",
		Signed:            true,
		DocumentType:      "nursing_visit",
		DomainAssessments: assessments,
	}
}

func issueKinds(result models.ValidationResult) []models.IssueKind {
	kinds := make([]models.IssueKind, 0, len(result.Issues))
	for _, issue := range result.Issues {
		kinds = append(kinds, issue.Kind)
	}

	return kinds
}

func TestValidator_PassingRecord(t *testing.T) {
	t.Parallel()

	result := newTestValidator().Validate(completeRecord())

	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
}

func TestValidator_CollectsAllIssuesWithoutShortCircuit(t *testing.T) {
	t.Parallel()

	record := completeRecord()
	record.PatientID = ""
	record.EmiratesID = "784-19-1234567-8"

	result := newTestValidator().Validate(record)

	require.False(t, result.Passed)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, models.IssueMissingRequiredField, result.Issues[0].Kind)
	assert.Equal(t, "patient_id", result.Issues[0].Component)
	assert.Equal(t, models.IssueFormatError, result.Issues[1].Kind)
	assert.Equal(t, "emirates_id", result.Issues[1].Component)
}

func TestValidator_MissingFieldReportedOnce(t *testing.T) {
	t.Parallel()

	// An absent value must not also trigger the format rules for that field.
	record := completeRecord()
	record.EmiratesID = "   "

	result := newTestValidator().Validate(record)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueMissingRequiredField, result.Issues[0].Kind)
}

func TestValidator_EmiratesIDFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"784-1985-1234567-8", true},
		{"000-0000-0000000-0", true},
		{"784-19-1234567-8", false},
		{"784-1985-1234567-88", false},
		{"784-1985-1234567", false},
		{"78A-1985-1234567-8", false},
		{"784 1985 1234567 8", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			record := completeRecord()
			record.EmiratesID = tt.value

			result := newTestValidator().Validate(record)

			if tt.valid {
				assert.True(t, result.Passed)
			} else {
				assert.Contains(t, issueKinds(result), models.IssueFormatError)
			}
		})
	}
}

func TestValidator_ServiceTimeFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"00:00", true},
		{"09:05", true},
		{"23:59", true},
		{"24:00", false},
		{"9:05", false},
		{"14:60", false},
		{"afternoon", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			record := completeRecord()
			record.ServiceTime = tt.value

			result := newTestValidator().Validate(record)

			assert.Equal(t, tt.valid, result.Passed)
		})
	}
}

func TestValidator_ServiceDateWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		date     string
		wantKind models.IssueKind
	}{
		{
			name: "today",
			date: "2026-03-10",
		},
		{
			name: "within future window",
			date: "2026-04-08",
		},
		{
			name:     "beyond future window",
			date:     "2026-04-15",
			wantKind: models.IssueRangeError,
		},
		{
			name: "within past window",
			date: "2025-06-01",
		},
		{
			name:     "beyond past window",
			date:     "2025-03-01",
			wantKind: models.IssueRangeError,
		},
		{
			name:     "unparseable",
			date:     "10/03/2026",
			wantKind: models.IssueFormatError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := completeRecord()
			record.ServiceDate = tt.date

			result := newTestValidator().Validate(record)

			if tt.wantKind == "" {
				assert.True(t, result.Passed)
			} else {
				assert.Contains(t, issueKinds(result), tt.wantKind)
			}
		})
	}
}

func TestValidator_LicenseExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expiry  string
		expired bool
	}{
		{
			name:   "future expiry",
			expiry: "2026-12-31",
		},
		{
			name:    "past expiry",
			expiry:  "2026-01-01",
			expired: true,
		},
		{
			// Midnight of the validation day is not after now: expired.
			name:    "expires today",
			expiry:  "2026-03-10",
			expired: true,
		},
		{
			name:   "no expiry on record",
			expiry: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := completeRecord()
			record.LicenseExpiry = tt.expiry

			result := newTestValidator().Validate(record)

			if tt.expired {
				require.Contains(t, issueKinds(result), models.IssueExpiredCredential)

				for _, issue := range result.Issues {
					if issue.Kind == models.IssueExpiredCredential {
						assert.Equal(t, models.SeverityCritical, issue.Severity)
					}
				}
			} else {
				assert.True(t, result.Passed)
			}
		})
	}
}

func TestValidator_SignatureMissing(t *testing.T) {
	t.Parallel()

	record := completeRecord()
	record.Signed = false

	result := newTestValidator().Validate(record)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueMissingSignature, result.Issues[0].Kind)
	assert.Equal(t, "signature", result.Issues[0].Component)
}

func TestValidator_MinLengthRules(t *testing.T) {
	t.Parallel()

	record := completeRecord()
	record.ClinicalFindings = "stable"
	record.Interventions = "done"

	result := newTestValidator().Validate(record)

	require.Len(t, result.Issues, 2)
	assert.Equal(t, "clinical_findings", result.Issues[0].Component)
	assert.Equal(t, "interventions", result.Issues[1].Component)
}

func TestValidator_DomainCompletenessAggregatedIssue(t *testing.T) {
	t.Parallel()

	record := completeRecord()
	delete(record.DomainAssessments, "psychosocial")
	record.DomainAssessments["cognitive"] = "   "

	result := newTestValidator().Validate(record)

	require.Len(t, result.Issues, 1)

	issue := result.Issues[0]
	assert.Equal(t, models.IssueIncompleteAssessment, issue.Kind)
	assert.Contains(t, issue.Message, "cognitive")
	assert.Contains(t, issue.Message, "psychosocial")
	assert.NotContains(t, issue.Message, "nutritional")
}

func TestValidator_AllDomainsMissingStillOneIssue(t *testing.T) {
	t.Parallel()

	record := completeRecord()
	record.DomainAssessments = nil

	result := newTestValidator().Validate(record)

	require.Len(t, result.Issues, 1)

	for _, domain := range models.AssessmentDomains {
		assert.Contains(t, result.Issues[0].Message, domain)
	}
}

func TestValidator_CustomWindowConfig(t *testing.T) {
	t.Parallel()

	config := compliance.Config{
		MaxFutureWindow: 24 * time.Hour,
		MaxPastWindow:   48 * time.Hour,
	}
	validator := compliance.NewValidator(config, clockwork.NewFakeClockAt(testNow))

	record := completeRecord()
	record.ServiceDate = "2026-03-13"

	result := validator.Validate(record)
	assert.Contains(t, issueKinds(result), models.IssueRangeError)

	record.ServiceDate = "2026-03-09"
	assert.True(t, validator.Validate(record).Passed)
}
