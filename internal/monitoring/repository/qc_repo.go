package repository

import (
	"context"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// QcControlRepository QC control readings
type QcControlRepository struct {
	db *gorm.DB
}

func NewQcControlRepository(db *gorm.DB) *QcControlRepository {
	return &QcControlRepository{db: db}
}

func (r *QcControlRepository) Create(ctx context.Context, control *entity.QcControl) error {
	return r.db.WithContext(ctx).Create(control).Error
}

func (r *QcControlRepository) Update(ctx context.Context, control *entity.QcControl) error {
	return r.db.WithContext(ctx).Save(control).Error
}

func (r *QcControlRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.QcControl, error) {
	var control entity.QcControl
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&control).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &control, nil
}

func (r *QcControlRepository) ListBySample(ctx context.Context, tenantID, sampleID string) ([]entity.QcControl, error) {
	var controls []entity.QcControl
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sample_id = ?", tenantID, sampleID).
		Order("created_at").
		Find(&controls).Error
	return controls, err
}

func (r *QcControlRepository) List(ctx context.Context, tenantID string, page, pageSize int, controlType string) ([]entity.QcControl, int64, error) {
	var controls []entity.QcControl
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.QcControl{}).Where("tenant_id = ?", tenantID)
	if controlType != "" {
		q = q.Where("type = ?", controlType)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&controls).Error
	return controls, total, err
}
