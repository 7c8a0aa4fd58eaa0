package handler

import (
	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// QCHandler QC control readings
type QCHandler struct {
	svc *service.QCService
}

func NewQCHandler(svc *service.QCService) *QCHandler {
	return &QCHandler{svc: svc}
}

// Create POST /api/v1/qc-controls
func (h *QCHandler) Create(c *gin.Context) {
	var req service.CreateControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	control, err := h.svc.CreateControl(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, control)
}

// Evaluate POST /api/v1/qc-controls/:id/evaluate
func (h *QCHandler) Evaluate(c *gin.Context) {
	var req struct {
		MeasuredValue *float64 `json:"measured_value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	control, err := h.svc.EvaluateControl(c.Request.Context(), GetTenantID(c), c.Param("id"), *req.MeasuredValue)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, control)
}

// List GET /api/v1/qc-controls
func (h *QCHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	controls, total, err := h.svc.ListControls(c.Request.Context(), GetTenantID(c), page, pageSize, c.Query("type"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      controls,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// ListBySample GET /api/v1/samples/:id/qc-controls
func (h *QCHandler) ListBySample(c *gin.Context) {
	controls, err := h.svc.ListControlsBySample(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": controls})
}

// Reflag POST /api/v1/results/:id/reflag
func (h *QCHandler) Reflag(c *gin.Context) {
	result, err := h.svc.AutoFlagResult(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}
