package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskfi-backend/internal/dto"
	"github.com/ignatzorin/taskfi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

// JobHandler обслуживает маршруты заказов и откликов.
type JobHandler struct {
	jobs AdmissionAPI
}

// NewJobHandler создаёт новый хэндлер.
func NewJobHandler(jobs AdmissionAPI) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateJob обрабатывает POST /jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req dto.CreateJobRequest
	if !common.BindJSON(c, &req) {
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), actor, service.CreateJobInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      *req.Budget,
		Currency:    req.Currency,
		DeadlineAt:  req.DeadlineAt,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob обрабатывает GET /jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	if _, ok := common.CurrentActor(c); !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CancelJob обрабатывает POST /jobs/:id/cancel.
func (h *JobHandler) CancelJob(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.jobs.CancelJob(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// Apply обрабатывает POST /jobs/:id/applications.
func (h *JobHandler) Apply(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	jobID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if !common.BindJSON(c, &req) {
		return
	}

	app, err := h.jobs.Apply(c.Request.Context(), actor, jobID, service.ApplyInput{
		CoverLetter:    req.CoverLetter,
		ProposedBudget: *req.ProposedBudget,
		DeliveryDays:   req.DeliveryDays,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListApplications обрабатывает GET /jobs/:id/applications.
func (h *JobHandler) ListApplications(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	jobID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	apps, err := h.jobs.ListApplications(c.Request.Context(), actor, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

// Decide обрабатывает PUT /jobs/:id/applications: пакетное решение по откликам.
func (h *JobHandler) Decide(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	jobID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.DecideRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if len(req.Decisions) == 0 {
		common.RespondAppError(c, apperror.Validation("список решений не может быть пустым"))
		return
	}

	decisions := make([]service.Decision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		decisions = append(decisions, service.Decision{ApplicationID: d.ApplicationID, Accept: d.Accept})
	}

	res, err := h.jobs.Decide(c.Request.Context(), actor, jobID, decisions)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DecideResponse{Job: res.Job, Accepted: res.Accepted, Rejected: res.Rejected})
}

// DecideSingle обрабатывает PUT /jobs/:id/applications/:applicationId.
func (h *JobHandler) DecideSingle(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	jobID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	appID, ok := common.UUIDParam(c, "applicationId")
	if !ok {
		return
	}

	var req dto.SingleDecisionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	app, err := h.jobs.DecideSingle(c.Request.Context(), actor, jobID, appID, *req.Accept)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}
