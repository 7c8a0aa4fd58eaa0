package handler

import (
	"errors"
	"strconv"

	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// Handlers monitoring handler set
type Handlers struct {
	Catalog    *CatalogHandler
	Plan       *PlanHandler
	Sample     *SampleHandler
	Result     *ResultHandler
	QC         *QCHandler
	Compliance *ComplianceHandler
}

// NewHandlers creates the handler set
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Catalog:    NewCatalogHandler(svc.Catalog),
		Plan:       NewPlanHandler(svc.Plan, svc.TaskGen),
		Sample:     NewSampleHandler(svc.Custody, svc.TaskGen, svc.Photo),
		Result:     NewResultHandler(svc.Result),
		QC:         NewQCHandler(svc.QC),
		Compliance: NewComplianceHandler(svc.Compliance),
	}
}

// Response common response envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination page info
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination builds page info from a repository count.
func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

// Success success response
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created creation response
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error error response
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest parameter error response
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound missing resource response
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict lifecycle conflict response
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError server error response
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError maps a service-layer error onto the response envelope.
func ServiceError(c *gin.Context, err error) {
	var batchErr *service.BatchError
	var validationErr *service.ValidationError
	var notFoundErr *service.NotFoundError
	var stateErr *service.InvalidStateError

	switch {
	case errors.As(err, &batchErr):
		c.JSON(400, Response{
			Code:    40000,
			Message: batchErr.Error(),
			Data:    gin.H{"rows": batchErr.Rows},
		})
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.As(err, &notFoundErr):
		NotFound(c, notFoundErr.Error())
	case errors.As(err, &stateErr):
		Conflict(c, stateErr.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID reads the authenticated user ID from the context.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetTenantID reads the authenticated tenant from the context.
func GetTenantID(c *gin.Context) string {
	tenantID, _ := c.Get("tenant_id")
	if id, ok := tenantID.(string); ok {
		return id
	}
	return ""
}

// GetPagination reads page params from the request.
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
