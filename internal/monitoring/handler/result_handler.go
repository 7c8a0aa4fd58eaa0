package handler

import (
	"io"

	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// ResultHandler analytical result intake
type ResultHandler struct {
	svc *service.ResultService
}

func NewResultHandler(svc *service.ResultService) *ResultHandler {
	return &ResultHandler{svc: svc}
}

// Create POST /api/v1/results
func (h *ResultHandler) Create(c *gin.Context) {
	var req service.CreateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	result, err := h.svc.CreateResult(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, result)
}

// Get GET /api/v1/results/:id
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// ImportCSV POST /api/v1/results/import
// Accepts a multipart "file" field holding the instrument export.
func (h *ResultHandler) ImportCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		InternalError(c, "Failed to open upload: "+err.Error())
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		InternalError(c, "Failed to read upload: "+err.Error())
		return
	}

	imported, err := h.svc.ImportFromCSV(c.Request.Context(), GetTenantID(c), GetUserID(c), string(content))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, gin.H{"imported": imported})
}
