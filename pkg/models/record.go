package models

import (
	"strings"
	"time"
)

// AssessmentDomains is the fixed list of clinical domains a complete nursing
// assessment must cover. Regulatory content, not a technical constant: every
// domain needs a non-blank entry in ClinicalRecord.DomainAssessments.
var AssessmentDomains = []string{
	"physical",
	"functional",
	"cognitive",
	"psychosocial",
	"nutritional",
	"pain",
	"skin_integrity",
	"medication_management",
	"environmental",
}

// ClinicalRecord is the documentation record submitted for one episode visit.
// It is owned by the caller; validators only read it. Unknown extra fields in
// the inbound payload are ignored, missing optional fields are treated as
// absent rather than malformed.
type ClinicalRecord struct {
	EpisodeID         string            `json:"episode_id"`
	PatientID         string            `json:"patient_id"`
	ServiceDate       string            `json:"service_date"` // 2006-01-02 or RFC 3339
	ServiceTime       string            `json:"service_time"` // 24h HH:MM
	ServiceLocation   string            `json:"service_location"`
	ProviderID        string            `json:"provider_id"`
	ProviderName      string            `json:"provider_name"`
	ProviderLicense   string            `json:"provider_license"`
	LicenseExpiry     string            `json:"license_expiry,omitempty"`
	EmiratesID        string            `json:"emirates_id"`
	ClinicalFindings  string            `json:"clinical_findings"`
	Interventions     string            `json:"interventions"`
	Signed            bool              `json:"signed"`
	DocumentType      string            `json:"document_type"`
	DomainAssessments map[string]string `json:"domain_assessments"`
	SubmittedAt       time.Time         `json:"submitted_at,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *ClinicalRecord) Clone() *ClinicalRecord {
	clone := *r

	if r.DomainAssessments != nil {
		clone.DomainAssessments = make(map[string]string, len(r.DomainAssessments))
		for domain, entry := range r.DomainAssessments {
			clone.DomainAssessments[domain] = entry
		}
	}

	return &clone
}

// MissingDomains returns the assessment domains without a non-blank entry,
// in the canonical domain order.
func (r *ClinicalRecord) MissingDomains() []string {
	missing := make([]string, 0)

	for _, domain := range AssessmentDomains {
		if !isPresent(r.DomainAssessments[domain]) {
			missing = append(missing, domain)
		}
	}

	return missing
}

func isPresent(value string) bool {
	return strings.TrimSpace(value) != ""
}
