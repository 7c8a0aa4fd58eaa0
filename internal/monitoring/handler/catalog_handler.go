package handler

import (
	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler sampling point and parameter catalog
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// CreatePoint POST /api/v1/sampling-points
func (h *CatalogHandler) CreatePoint(c *gin.Context) {
	var req service.CreatePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	point, err := h.svc.CreatePoint(c.Request.Context(), GetTenantID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, point)
}

// ListPoints GET /api/v1/sampling-points
func (h *CatalogHandler) ListPoints(c *gin.Context) {
	page, pageSize := GetPagination(c)
	points, total, err := h.svc.ListPoints(c.Request.Context(), GetTenantID(c), page, pageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      points,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// DeactivatePoint POST /api/v1/sampling-points/:id/deactivate
func (h *CatalogHandler) DeactivatePoint(c *gin.Context) {
	point, err := h.svc.DeactivatePoint(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, point)
}

// CreateParameter POST /api/v1/parameters
func (h *CatalogHandler) CreateParameter(c *gin.Context) {
	var req service.CreateParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	param, err := h.svc.CreateParameter(c.Request.Context(), GetTenantID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, param)
}

// ListParameters GET /api/v1/parameters
func (h *CatalogHandler) ListParameters(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params, total, err := h.svc.ListParameters(c.Request.Context(), GetTenantID(c), page, pageSize)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      params,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// DeactivateParameter POST /api/v1/parameters/:id/deactivate
func (h *CatalogHandler) DeactivateParameter(c *gin.Context) {
	param, err := h.svc.DeactivateParameter(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, param)
}
