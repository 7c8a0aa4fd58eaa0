package repository

import (
	"context"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// PlanRepository sampling plans and their rules
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(ctx context.Context, plan *entity.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// FindByID tenant-scoped lookup with rules preloaded.
func (r *PlanRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Plan, error) {
	var plan entity.Plan
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&plan).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *entity.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *PlanRepository) AddRule(ctx context.Context, rule *entity.PlanRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *PlanRepository) CountRules(ctx context.Context, planID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.PlanRule{}).
		Where("plan_id = ?", planID).
		Count(&count).Error
	return count, err
}

func (r *PlanRepository) List(ctx context.Context, tenantID string, page, pageSize int, status string) ([]entity.Plan, int64, error) {
	var plans []entity.Plan
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Plan{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Rules").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&plans).Error
	return plans, total, err
}
