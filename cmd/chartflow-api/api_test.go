package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/cmd"
	"github.com/carebridge/chartflow/pkg/health"
	"github.com/carebridge/chartflow/pkg/log"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence/file"
	"github.com/carebridge/chartflow/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := log.WithModule("api_test")
	persistence := file.NewPersistence(t.TempDir())
	eventBus := cmd.NewEventBus("gochannel", logger)

	t.Cleanup(func() {
		if err := eventBus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	api, err := NewAPI(context.Background(), logger, persistence, eventBus, Config{
		ProcessingDelay: time.Millisecond,
		Features: map[string]bool{
			health.FeatureWoundAssessmentForm: true,
			health.FeatureVitalSignsForm:      true,
		},
	})
	require.NoError(t, err)

	return api.App()
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = bytes.NewBufferString(payload)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

const workflowTemplate = `{
	"name": "Discharge Documentation",
	"steps": [
		{"id": "summary", "name": "Discharge Summary", "estimated_time": 20},
		{"id": "review", "name": "Physician Review", "estimated_time": 10, "dependencies": ["summary"]}
	]
}`

const passingRecordBody = `{
	"episode_id": "ep-1",
	"patient_id": "pt-1",
	"service_date": "%s",
	"service_time": "10:00",
	"service_location": "patient home",
	"provider_id": "prov-1",
	"provider_name": "Amina Hassan",
	"provider_license": "DOH-12345",
	"license_expiry": "%s",
	"emirates_id": "784-1985-1234567-8",
	"clinical_findings": "Wound healing well, no signs of infection.",
	"interventions": "Dressing changed, patient education provided.",
	"signed": true,
	"document_type": "nursing_visit",
	"domain_assessments": {
		"physical": "assessed", "functional": "assessed", "cognitive": "assessed",
		"psychosocial": "assessed", "nutritional": "assessed", "pain": "assessed",
		"skin_integrity": "assessed", "medication_management": "assessed",
		"environmental": "assessed"
	}
}`

func recordBody() string {
	serviceDate := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	licenseExpiry := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")

	return fmt.Sprintf(passingRecordBody, serviceDate, licenseExpiry)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ChartFlow API", string(raw))
}

func TestAPI_CreateAndFetchWorkflow(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", workflowTemplate)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Steps, 2)

	resp, raw = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestAPI_CreateWorkflowRejectsInvalidTemplate(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", `{"name": "No Steps", "steps": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetWorkflowNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CompleteStep(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", workflowTemplate)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, raw = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/steps/summary/complete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, models.StepStatusCompleted, updated.StatusOf("summary"))
	assert.Equal(t, 50, updated.CompletionRate())
}

func TestAPI_CompleteStepUnknownStep(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", workflowTemplate)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/steps/ghost/complete", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SetAutomation(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", workflowTemplate)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, raw = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/automation", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.ClinicalWorkflow
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.False(t, updated.AutomationEnabled)

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/automation", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ValidateRecord(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/records/validate", recordBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Passed)
}

func TestAPI_SubmitRecord(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/records", recordBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submitted web.SubmitRecordResponse
	require.NoError(t, json.Unmarshal(raw, &submitted))
	assert.True(t, submitted.Accepted)

	resp, raw = doJSON(t, app, http.MethodGet, "/records/ep-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ClinicalRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "pt-1", record.PatientID)
}

func TestAPI_SubmitFailingRecordReturnsIssues(t *testing.T) {
	app := setupTestApp(t)

	body := fmt.Sprintf(passingRecordBody,
		time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
		"2020-01-01") // expired license

	resp, raw := doJSON(t, app, http.MethodPost, "/records", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var submitted web.SubmitRecordResponse
	require.NoError(t, json.Unmarshal(raw, &submitted))
	assert.False(t, submitted.Accepted)
	assert.NotEmpty(t, submitted.Result.Issues)
}

func TestAPI_SubmitRecordRequiresEpisodeID(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/records", `{"patient_id": "pt-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_HealthReport(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/health-report", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report models.HealthReport
	require.NoError(t, json.Unmarshal(raw, &report))

	assert.Len(t, report.Categories, len(models.CategoryOrder))

	for _, category := range models.CategoryOrder {
		assert.Contains(t, report.Categories, category)
	}
}

func TestAPI_HealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
