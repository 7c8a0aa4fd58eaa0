package handler

import (
	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-gonic/gin"
)

// PlanHandler monitoring plan lifecycle and task generation
type PlanHandler struct {
	svc     *service.PlanService
	taskGen *service.TaskGenService
}

func NewPlanHandler(svc *service.PlanService, taskGen *service.TaskGenService) *PlanHandler {
	return &PlanHandler{svc: svc, taskGen: taskGen}
}

// Create POST /api/v1/plans
func (h *PlanHandler) Create(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	plan, err := h.svc.CreatePlan(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, plan)
}

// Get GET /api/v1/plans/:id
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// List GET /api/v1/plans
func (h *PlanHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	plans, total, err := h.svc.List(c.Request.Context(), GetTenantID(c), page, pageSize, c.Query("status"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      plans,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// AddRule POST /api/v1/plans/:id/rules
func (h *PlanHandler) AddRule(c *gin.Context) {
	var req service.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	rule, err := h.svc.AddRule(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, rule)
}

// Activate POST /api/v1/plans/:id/activate
func (h *PlanHandler) Activate(c *gin.Context) {
	plan, err := h.svc.ActivatePlan(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// GenerateTasks POST /api/v1/plans/:id/generate-tasks
func (h *PlanHandler) GenerateTasks(c *gin.Context) {
	samples, err := h.taskGen.GenerateTasks(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, gin.H{
		"generated": len(samples),
		"samples":   samples,
	})
}
