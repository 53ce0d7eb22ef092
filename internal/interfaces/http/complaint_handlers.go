package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/lifecycle"
)

// ComplaintRequest carries complaint fields and attachments
type ComplaintRequest struct {
	Fields      entity.ComplaintFields `json:"fields"`
	Attachments []entity.AttachmentRef `json:"attachments"`
}

// ComplaintActionRequest asks for one complaint action
type ComplaintActionRequest struct {
	Action  lifecycle.ComplaintAction  `json:"action" binding:"required,oneof=assign start resolve reject"`
	Payload lifecycle.ComplaintPayload `json:"payload"`
}

// SubmitComplaint handles POST /api/complaints
func (h *Handlers) SubmitComplaint(c *gin.Context) {
	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.SubmitComplaint(c.Request.Context(), actorFrom(c), req.Fields, req.Attachments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, result)
}

// GetComplaint handles GET /api/complaints/:id
func (h *Handlers) GetComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	complaint, err := h.workflow.GetComplaint(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, complaint)
}

// UpdateComplaint handles PUT /api/complaints/:id
func (h *Handlers) UpdateComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.UpdateComplaint(c.Request.Context(), actorFrom(c), id, req.Fields, req.Attachments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// DeleteComplaint handles DELETE /api/complaints/:id
func (h *Handlers) DeleteComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.workflow.DeleteComplaint(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransitionComplaint handles POST /api/complaints/:id/actions
func (h *Handlers) TransitionComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ComplaintActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	status, err := h.workflow.TransitionComplaint(c.Request.Context(), actorFrom(c), id, req.Action, req.Payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "status": status})
}
