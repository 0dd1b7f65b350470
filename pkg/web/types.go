// Package web provides HTTP request and response types for the chartflow API.
package web

import "github.com/carebridge/chartflow/pkg/models"

// RecordRequest is the request body for validating or submitting a clinical
// record. The compliance rule set is the authority on record content; the
// request-level tags only reject payloads the engine cannot meaningfully
// evaluate.
type RecordRequest struct {
	EpisodeID         string            `json:"episode_id"                  validate:"required"`
	PatientID         string            `json:"patient_id"`
	ServiceDate       string            `json:"service_date"`
	ServiceTime       string            `json:"service_time"`
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
}

// ToModel converts the request into the domain record.
func (r RecordRequest) ToModel() *models.ClinicalRecord {
	return &models.ClinicalRecord{
		EpisodeID:         r.EpisodeID,
		PatientID:         r.PatientID,
		ServiceDate:       r.ServiceDate,
		ServiceTime:       r.ServiceTime,
		ServiceLocation:   r.ServiceLocation,
		ProviderID:        r.ProviderID,
		ProviderName:      r.ProviderName,
		ProviderLicense:   r.ProviderLicense,
		LicenseExpiry:     r.LicenseExpiry,
		EmiratesID:        r.EmiratesID,
		ClinicalFindings:  r.ClinicalFindings,
		Interventions:     r.Interventions,
		Signed:            r.Signed,
		DocumentType:      r.DocumentType,
		DomainAssessments: r.DomainAssessments,
	}
}

// AutomationRequest is the request body for toggling workflow automation.
type AutomationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SubmitRecordResponse carries the validation outcome of a submission.
type SubmitRecordResponse struct {
	Accepted bool                    `json:"accepted"`
	Result   models.ValidationResult `json:"result"`
}
