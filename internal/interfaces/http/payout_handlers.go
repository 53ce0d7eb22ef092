package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
)

// AddDetailRequest adds one application to a batch. A nil amount uses the
// approved amount of the application.
type AddDetailRequest struct {
	ApplicationID int64            `json:"application_id" binding:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

// DetailStatusRequest sets a row state from a status label
type DetailStatusRequest struct {
	StatusLabel string `json:"status_label" binding:"required"`
}

// ImportRowsRequest carries already-parsed reconciliation rows
type ImportRowsRequest struct {
	Rows []entity.PayoutStatusRow `json:"rows" binding:"required"`
}

// CreatePayoutBatch handles POST /api/payout-batches
func (h *Handlers) CreatePayoutBatch(c *gin.Context) {
	var req validation.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	batch, err := h.workflow.CreatePayoutBatch(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, batch)
}

// GetPayoutBatch handles GET /api/payout-batches/:id
func (h *Handlers) GetPayoutBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflow.GetPayoutBatch(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, batch)
}

// AddEligibleApplications handles POST /api/payout-batches/:id/eligible
func (h *Handlers) AddEligibleApplications(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	added, err := h.workflow.AddEligibleApplications(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"added": added})
}

// AddPayoutDetail handles POST /api/payout-batches/:id/details
func (h *Handlers) AddPayoutDetail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req AddDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	detail, err := h.workflow.AddPayoutDetail(c.Request.Context(), actorFrom(c), id, req.ApplicationID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, detail)
}

// StartPayoutBatch handles POST /api/payout-batches/:id/start
func (h *Handlers) StartPayoutBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflow.StartPayoutBatch(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, batch)
}

// CancelPayoutBatch handles POST /api/payout-batches/:id/cancel
func (h *Handlers) CancelPayoutBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflow.CancelPayoutBatch(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, batch)
}

// CompletePayoutBatch handles POST /api/payout-batches/:id/complete
func (h *Handlers) CompletePayoutBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.workflow.CompletePayoutBatch(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// SetPayoutDetailStatus handles PUT /api/payout-details/:id/status
func (h *Handlers) SetPayoutDetailStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req DetailStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	detail, err := h.workflow.SetPayoutDetailStatus(c.Request.Context(), actorFrom(c), id, req.StatusLabel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, detail)
}

// ImportPayoutFile handles POST /api/payout-imports (multipart field "file")
func (h *Handlers) ImportPayoutFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	result, err := h.workflow.ImportPayoutFile(c.Request.Context(), actorFrom(c), fileHeader.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ImportPayoutRows handles POST /api/payout-imports/rows
func (h *Handlers) ImportPayoutRows(c *gin.Context) {
	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.workflow.ImportPayoutRows(c.Request.Context(), actorFrom(c), req.Rows)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
