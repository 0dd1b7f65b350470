package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/services"
)

type APIHandlers struct {
	workflowService *services.WorkflowService
	recordService   *services.RecordService
	healthService   *services.HealthService
	persistence     persistence.Persistence
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.WorkflowService,
	recordService *services.RecordService,
	healthService *services.HealthService,
	persist persistence.Persistence,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		recordService:   recordService,
		healthService:   healthService,
		persistence:     persist,
		validator:       validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow instantiates a workflow from a raw template document. The
// template schema, not a request DTO, is the contract here.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.CreateFromTemplate(c.Context(), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) ReplaceWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var workflow models.ClinicalWorkflow
	if err := c.Bind().JSON(&workflow); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	workflow.ID = id

	updated, err := h.workflowService.Replace(c.Context(), &workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CompleteStep(c fiber.Ctx) error {
	id := c.Params("id")
	stepID := c.Params("stepId")

	if id == "" || stepID == "" {
		return badRequest(c, "Workflow ID and step ID are required")
	}

	workflow, err := h.workflowService.CompleteStep(c.Context(), id, stepID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req AutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	workflow, err := h.workflowService.SetAutomation(c.Context(), id, *req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// ValidateRecord runs the compliance rule set without persisting anything.
func (h *APIHandlers) ValidateRecord(c fiber.Ctx) error {
	var req RecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	result := h.recordService.Validate(c.Context(), req.ToModel())

	return c.JSON(result)
}

// SubmitRecord validates the record and stores it on a pass. A failing record
// is not an HTTP error: the caller gets the full issue list with a 422.
func (h *APIHandlers) SubmitRecord(c fiber.Ctx) error {
	var req RecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	result, err := h.recordService.Submit(c.Context(), req.ToModel())
	if err != nil {
		if services.IsRecordRejected(err) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(SubmitRecordResponse{
				Accepted: false,
				Result:   result,
			})
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SubmitRecordResponse{
		Accepted: true,
		Result:   result,
	})
}

func (h *APIHandlers) GetRecords(c fiber.Ctx) error {
	records, err := h.recordService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"records":     records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetRecord(c fiber.Ctx) error {
	episodeID := c.Params("episodeId")
	if episodeID == "" {
		return badRequest(c, "Episode ID is required")
	}

	record, err := h.recordService.FetchByEpisode(c.Context(), episodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// GetHealthReport recomputes and returns the full platform health report.
func (h *APIHandlers) GetHealthReport(c fiber.Ctx) error {
	report, err := h.healthService.GenerateReport(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
