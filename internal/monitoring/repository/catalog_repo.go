package repository

import (
	"context"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// SamplingPointRepository catalog of sampling locations
type SamplingPointRepository struct {
	db *gorm.DB
}

func NewSamplingPointRepository(db *gorm.DB) *SamplingPointRepository {
	return &SamplingPointRepository{db: db}
}

func (r *SamplingPointRepository) Create(ctx context.Context, point *entity.SamplingPoint) error {
	return r.db.WithContext(ctx).Create(point).Error
}

func (r *SamplingPointRepository) Update(ctx context.Context, point *entity.SamplingPoint) error {
	return r.db.WithContext(ctx).Save(point).Error
}

// FindByID tenant-scoped lookup; a foreign tenant's point reads as absent.
func (r *SamplingPointRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.SamplingPoint, error) {
	var point entity.SamplingPoint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&point).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &point, nil
}

// FindActiveByKind active points of one kind, used by task generation.
func (r *SamplingPointRepository) FindActiveByKind(ctx context.Context, tenantID, kind string) ([]entity.SamplingPoint, error) {
	var points []entity.SamplingPoint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND is_active = ?", tenantID, kind, true).
		Order("code").
		Find(&points).Error
	return points, err
}

// FindActive all active points for the tenant (compliance sweep).
func (r *SamplingPointRepository) FindActive(ctx context.Context, tenantID string) ([]entity.SamplingPoint, error) {
	var points []entity.SamplingPoint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("code").
		Find(&points).Error
	return points, err
}

func (r *SamplingPointRepository) List(ctx context.Context, tenantID string, page, pageSize int) ([]entity.SamplingPoint, int64, error) {
	var points []entity.SamplingPoint
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.SamplingPoint{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("code").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&points).Error
	return points, total, err
}

// ParameterRepository catalog of analytical parameters
type ParameterRepository struct {
	db *gorm.DB
}

func NewParameterRepository(db *gorm.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

func (r *ParameterRepository) Create(ctx context.Context, param *entity.Parameter) error {
	return r.db.WithContext(ctx).Create(param).Error
}

func (r *ParameterRepository) Update(ctx context.Context, param *entity.Parameter) error {
	return r.db.WithContext(ctx).Save(param).Error
}

func (r *ParameterRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Parameter, error) {
	var param entity.Parameter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&param).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &param, nil
}

// FindByCode resolves a parameter by its short code (CSV import).
func (r *ParameterRepository) FindByCode(ctx context.Context, tenantID, code string) (*entity.Parameter, error) {
	var param entity.Parameter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&param).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &param, nil
}

// FindActiveByGroup active parameters of one group, used by task generation.
func (r *ParameterRepository) FindActiveByGroup(ctx context.Context, tenantID, group string) ([]entity.Parameter, error) {
	var params []entity.Parameter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND param_group = ? AND is_active = ?", tenantID, group, true).
		Order("code").
		Find(&params).Error
	return params, err
}

func (r *ParameterRepository) FindActive(ctx context.Context, tenantID string) ([]entity.Parameter, error) {
	var params []entity.Parameter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("code").
		Find(&params).Error
	return params, err
}

func (r *ParameterRepository) List(ctx context.Context, tenantID string, page, pageSize int) ([]entity.Parameter, int64, error) {
	var params []entity.Parameter
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Parameter{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("code").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&params).Error
	return params, total, err
}
