package service

import (
	"context"
	"errors"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanService sampling plan definitions and activation
type PlanService struct {
	planRepo *repository.PlanRepository
	now      Clock
	logger   *zap.Logger
}

func NewPlanService(planRepo *repository.PlanRepository, now Clock, logger *zap.Logger) *PlanService {
	return &PlanService{planRepo: planRepo, now: now, logger: logger}
}

// CreatePlanRequest new sampling plan
type CreatePlanRequest struct {
	Name        string    `json:"name" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	Notes       string    `json:"notes"`
}

// CreatePlan starts a plan in draft. period_end must be strictly after
// period_start.
func (s *PlanService) CreatePlan(ctx context.Context, tenantID, userID string, req *CreatePlanRequest) (*entity.Plan, error) {
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, invalidField("period_end", "must be after period_start")
	}

	plan := &entity.Plan{
		ID:          uuid.New().String()[:32],
		TenantID:    tenantID,
		Name:        req.Name,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Status:      entity.PlanStatusDraft,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// AddRuleRequest new plan rule
type AddRuleRequest struct {
	PointKind      string `json:"point_kind" binding:"required"`
	ParameterGroup string `json:"parameter_group" binding:"required"`
	Frequency      string `json:"frequency" binding:"required"`
	SampleCount    int    `json:"sample_count"`
	ContainerType  string `json:"container_type"`
	Preservatives  string `json:"preservatives"`
	HoldingTimeHrs int    `json:"holding_time_hrs"`
}

// AddRule attaches a rule to a draft plan. sample_count defaults to 1.
func (s *PlanService) AddRule(ctx context.Context, tenantID, planID string, req *AddRuleRequest) (*entity.PlanRule, error) {
	plan, err := s.planRepo.FindByID(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("plan", planID)
		}
		return nil, err
	}
	if plan.Status != entity.PlanStatusDraft {
		return nil, &InvalidStateError{Entity: "plan", Current: plan.Status, Attempted: "add_rule"}
	}

	if !entity.ValidPointKinds[req.PointKind] {
		return nil, invalidField("point_kind", "unknown point kind "+req.PointKind)
	}
	if !entity.ValidParameterGroups[req.ParameterGroup] {
		return nil, invalidField("parameter_group", "unknown parameter group "+req.ParameterGroup)
	}
	if !entity.ValidFrequencies[req.Frequency] {
		return nil, invalidField("frequency", "unknown frequency "+req.Frequency)
	}
	if req.SampleCount < 0 {
		return nil, invalidField("sample_count", "must be >= 1")
	}

	sampleCount := req.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	rule := &entity.PlanRule{
		ID:             uuid.New().String()[:32],
		PlanID:         plan.ID,
		PointKind:      req.PointKind,
		ParameterGroup: req.ParameterGroup,
		Frequency:      req.Frequency,
		SampleCount:    sampleCount,
		ContainerType:  req.ContainerType,
		Preservatives:  req.Preservatives,
		HoldingTimeHrs: req.HoldingTimeHrs,
	}
	if err := s.planRepo.AddRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ActivatePlan moves a draft plan with at least one rule to active.
// Activation does not generate samples; generation is a separate,
// explicitly invoked step.
func (s *PlanService) ActivatePlan(ctx context.Context, tenantID, planID string) (*entity.Plan, error) {
	plan, err := s.planRepo.FindByID(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("plan", planID)
		}
		return nil, err
	}
	if plan.Status == entity.PlanStatusActive {
		return nil, &InvalidStateError{Entity: "plan", Current: plan.Status, Attempted: "activate"}
	}

	ruleCount, err := s.planRepo.CountRules(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	if ruleCount == 0 {
		return nil, invalidField("rules", "plan has no rules")
	}

	plan.Status = entity.PlanStatusActive
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("plan activated",
		zap.String("plan_id", plan.ID),
		zap.Int64("rules", ruleCount),
	)
	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, tenantID, planID string) (*entity.Plan, error) {
	plan, err := s.planRepo.FindByID(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("plan", planID)
		}
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) List(ctx context.Context, tenantID string, page, pageSize int, status string) ([]entity.Plan, int64, error) {
	return s.planRepo.List(ctx, tenantID, page, pageSize, status)
}
