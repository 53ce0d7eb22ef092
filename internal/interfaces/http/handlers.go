package http

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/benefits-portal/internal/application/service"
	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/lifecycle"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflow       service.WorkflowService
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(workflow service.WorkflowService, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		workflow:       workflow,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ApplicationRequest carries the wizard fields and the admitted attachments
type ApplicationRequest struct {
	Fields      entity.ApplicationFields `json:"fields"`
	Attachments []entity.AttachmentRef   `json:"attachments"`
}

// UpdateFieldsRequest carries edited fields guarded by the status the
// caller last saw
type UpdateFieldsRequest struct {
	ExpectedStatus string                   `json:"expected_status" binding:"required"`
	Fields         entity.ApplicationFields `json:"fields"`
}

// AttachmentsRequest carries attachment references to merge
type AttachmentsRequest struct {
	Attachments []entity.AttachmentRef `json:"attachments" binding:"required,min=1"`
}

// TransitionRequest asks for one status edge
type TransitionRequest struct {
	FromStatus string                      `json:"from_status" binding:"required"`
	ToStatus   string                      `json:"to_status" binding:"required"`
	Payload    lifecycle.TransitionPayload `json:"payload"`
}

// WizardRequest carries the fields of an in-progress submission
type WizardRequest struct {
	From   validation.Step          `json:"from"`
	To     validation.Step          `json:"to"`
	Step   validation.Step          `json:"step"`
	Intent validation.Intent        `json:"intent"`
	Fields entity.ApplicationFields `json:"fields"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// ValidateStep handles POST /api/wizard/steps/:step/validate
func (h *Handlers) ValidateStep(c *gin.Context) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || !validation.Step(step).IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid step"})
		return
	}

	var req WizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	failures := h.workflow.ValidateStep(validation.Step(step), req.Fields)
	respondOK(c, http.StatusOK, gin.H{
		"valid":  len(failures) == 0,
		"fields": failures,
	})
}

// NavigateWizard handles POST /api/wizard/navigate
func (h *Handlers) NavigateWizard(c *gin.Context) {
	var req WizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	step, err := h.workflow.NavigateWizard(req.From, req.To, req.Fields)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"step": step})
}

// CheckSubmit handles POST /api/wizard/submit-check
func (h *Handlers) CheckSubmit(c *gin.Context) {
	var req WizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	if err := h.workflow.CheckSubmit(req.Step, req.Intent, req.Fields); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"ready": true})
}

// UploadAttachment handles POST /api/attachments (multipart field "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}

	content, err := readUpload(fileHeader, h.maxUploadBytes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ref, err := h.workflow.UploadAttachment(c.Request.Context(), actorFrom(c),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, ref)
}

// SubmitApplication handles POST /api/applications
func (h *Handlers) SubmitApplication(c *gin.Context) {
	var req ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.SubmitApplication(c.Request.Context(), actorFrom(c), req.Fields, req.Attachments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, result)
}

// SaveDraft handles POST /api/applications/drafts
func (h *Handlers) SaveDraft(c *gin.Context) {
	var req ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.SaveDraft(c.Request.Context(), actorFrom(c), req.Fields, req.Attachments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, result)
}

// GetApplication handles GET /api/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	app, err := h.workflow.GetApplication(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, app)
}

// UpdateApplicationFields handles PUT /api/applications/:id
func (h *Handlers) UpdateApplicationFields(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	app, err := h.workflow.UpdateApplicationFields(c.Request.Context(), actorFrom(c), id, req.ExpectedStatus, req.Fields)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, app)
}

// DeleteApplication handles DELETE /api/applications/:id
func (h *Handlers) DeleteApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.workflow.DeleteApplication(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddApplicationAttachments handles POST /api/applications/:id/attachments
func (h *Handlers) AddApplicationAttachments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req AttachmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.AddApplicationAttachments(c.Request.Context(), actorFrom(c), id, req.Attachments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// TransitionApplication handles POST /api/applications/:id/transitions
func (h *Handlers) TransitionApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	status, err := h.workflow.TransitionApplication(c.Request.Context(), actorFrom(c), id, req.FromStatus, req.ToStatus, req.Payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "status": status})
}

// history handles GET /api/<entity>/:id/history
func (h *Handlers) history(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		entries, err := h.workflow.ListHistory(c.Request.Context(), actorFrom(c), entityType, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, entries)
	}
}

// readUpload reads an uploaded part, refusing content over limit
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if limit <= 0 {
		return io.ReadAll(f)
	}

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, apperr.Validation(apperr.FieldError{Field: "file", Message: "exceeds upload limit"})
	}
	return content, nil
}
