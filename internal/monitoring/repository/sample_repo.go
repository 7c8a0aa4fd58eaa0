package repository

import (
	"context"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// SampleRepository samples, their parameters and the custody chain
type SampleRepository struct {
	db *gorm.DB
}

func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Create(ctx context.Context, sample *entity.Sample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}

// FindByID tenant-scoped lookup with parameters preloaded.
func (r *SampleRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Sample, error) {
	var sample entity.Sample
	err := r.db.WithContext(ctx).
		Preload("Params").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sample).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sample, nil
}

// FindByBarcode resolves a scanned barcode to its sample.
func (r *SampleRepository) FindByBarcode(ctx context.Context, tenantID, barcode string) (*entity.Sample, error) {
	var sample entity.Sample
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND barcode = ?", tenantID, barcode).
		First(&sample).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sample, nil
}

func (r *SampleRepository) Update(ctx context.Context, sample *entity.Sample) error {
	return r.db.WithContext(ctx).Save(sample).Error
}

func (r *SampleRepository) List(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Sample, int64, error) {
	var samples []entity.Sample
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.Sample{}).Where("tenant_id = ?", tenantID)
	if v := filters["custody_state"]; v != "" {
		q = q.Where("custody_state = ?", v)
	}
	if v := filters["sampling_point_id"]; v != "" {
		q = q.Where("sampling_point_id = ?", v)
	}
	if v := filters["plan_id"]; v != "" {
		q = q.Where("plan_id = ?", v)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("scheduled_for DESC, barcode").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&samples).Error
	return samples, total, err
}

// Chain the custody events for a sample, oldest first.
func (r *SampleRepository) Chain(ctx context.Context, sampleID string) ([]entity.CustodyEvent, error) {
	var events []entity.CustodyEvent
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("timestamp, created_at").
		Find(&events).Error
	return events, err
}

// FindParamByID lookup without tenant scope; callers verify ownership
// through the parent sample.
func (r *SampleRepository) FindParamByID(ctx context.Context, id string) (*entity.SampleParam, error) {
	var param entity.SampleParam
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&param).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &param, nil
}

func (r *SampleRepository) ParamsBySample(ctx context.Context, sampleID string) ([]entity.SampleParam, error) {
	var params []entity.SampleParam
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Find(&params).Error
	return params, err
}
