package handler

import (
	"errors"

	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// SampleHandler sample custody lifecycle
type SampleHandler struct {
	custody *service.CustodyService
	taskGen *service.TaskGenService
	photo   *service.PhotoService
}

func NewSampleHandler(custody *service.CustodyService, taskGen *service.TaskGenService, photo *service.PhotoService) *SampleHandler {
	return &SampleHandler{custody: custody, taskGen: taskGen, photo: photo}
}

// CreateAdhoc POST /api/v1/samples
func (h *SampleHandler) CreateAdhoc(c *gin.Context) {
	var req service.CreateAdhocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	sample, err := h.taskGen.CreateAdhocSample(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, sample)
}

// Get GET /api/v1/samples/:id
func (h *SampleHandler) Get(c *gin.Context) {
	sample, err := h.custody.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, sample)
}

// GetByBarcode GET /api/v1/barcodes/:barcode
func (h *SampleHandler) GetByBarcode(c *gin.Context) {
	sample, err := h.custody.GetByBarcode(c.Request.Context(), GetTenantID(c), c.Param("barcode"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, sample)
}

// List GET /api/v1/samples
func (h *SampleHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"custody_state":     c.Query("custody_state"),
		"sampling_point_id": c.Query("sampling_point_id"),
		"plan_id":           c.Query("plan_id"),
	}
	samples, total, err := h.custody.List(c.Request.Context(), GetTenantID(c), page, pageSize, filters)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      samples,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Collect POST /api/v1/samples/:id/collect
func (h *SampleHandler) Collect(c *gin.Context) {
	var req service.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	sample, err := h.custody.Collect(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, sample)
}

// Receive POST /api/v1/samples/:id/receive
func (h *SampleHandler) Receive(c *gin.Context) {
	var req service.ReceiveLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	sample, err := h.custody.ReceiveInLab(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, sample)
}

// Reject POST /api/v1/samples/:id/reject
func (h *SampleHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	sample, err := h.custody.Reject(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), req.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, sample)
}

// UploadPhoto POST /api/v1/samples/:id/photos
func (h *SampleHandler) UploadPhoto(c *gin.Context) {
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

	objectName, err := h.photo.Upload(c.Request.Context(), GetTenantID(c), c.Param("id"),
		file.Filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, service.ErrPhotoStorageDisabled) {
			Error(c, 50300, "Photo storage is not configured")
			return
		}
		ServiceError(c, err)
		return
	}
	Created(c, gin.H{"object": objectName})
}

// PhotoURL GET /api/v1/samples/:id/photos/url?object=...
func (h *SampleHandler) PhotoURL(c *gin.Context) {
	object := c.Query("object")
	if object == "" {
		BadRequest(c, "object is required")
		return
	}
	url, err := h.photo.PresignedURL(c.Request.Context(), GetTenantID(c), c.Param("id"), object)
	if err != nil {
		if errors.Is(err, service.ErrPhotoStorageDisabled) {
			Error(c, 50300, "Photo storage is not configured")
			return
		}
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"url": url})
}
