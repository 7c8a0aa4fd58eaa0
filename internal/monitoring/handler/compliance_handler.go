package handler

import (
	"fmt"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// ComplianceHandler compliance aggregation and dashboards
type ComplianceHandler struct {
	svc *service.ComplianceService
}

func NewComplianceHandler(svc *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

type computeRequest struct {
	SamplingPointID string    `json:"sampling_point_id" binding:"required"`
	ParameterID     string    `json:"parameter_id" binding:"required"`
	PeriodStart     time.Time `json:"period_start" binding:"required"`
	Granularity     string    `json:"granularity" binding:"required"`
}

// Compute POST /api/v1/compliance/compute
func (h *ComplianceHandler) Compute(c *gin.Context) {
	var req computeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	record, err := h.svc.ComputeCompliance(c.Request.Context(), GetTenantID(c),
		req.SamplingPointID, req.ParameterID, req.PeriodStart, req.Granularity)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, record)
}

// ComputeAll POST /api/v1/compliance/compute-all
func (h *ComplianceHandler) ComputeAll(c *gin.Context) {
	var req struct {
		PeriodStart time.Time `json:"period_start" binding:"required"`
		Granularity string    `json:"granularity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	computed, err := h.svc.ComputeAllCompliance(c.Request.Context(), GetTenantID(c), req.PeriodStart, req.Granularity)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"computed": computed})
}

func summaryFilter(c *gin.Context) repository.SummaryFilter {
	filter := repository.SummaryFilter{Granularity: c.Query("granularity")}
	if raw := c.Query("period_start"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.PeriodStart = &t
		}
	}
	return filter
}

// Summary GET /api/v1/compliance/summary
func (h *ComplianceHandler) Summary(c *gin.Context) {
	summary, err := h.svc.GetComplianceSummary(c.Request.Context(), GetTenantID(c), summaryFilter(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, summary)
}

// List GET /api/v1/compliance
func (h *ComplianceHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	records, total, err := h.svc.ListCompliance(c.Request.Context(), GetTenantID(c), summaryFilter(c), page, pageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      records,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Export GET /api/v1/compliance/export
func (h *ComplianceHandler) Export(c *gin.Context) {
	f, err := h.svc.ExportComplianceXlsx(c.Request.Context(), GetTenantID(c), summaryFilter(c))
	if err != nil {
		ServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("compliance-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "Failed to write spreadsheet: "+err.Error())
	}
}
