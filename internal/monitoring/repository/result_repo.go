package repository

import (
	"context"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// ResultRepository analytical results
type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Create(ctx context.Context, result *entity.Result) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *ResultRepository) Update(ctx context.Context, result *entity.Result) error {
	return r.db.WithContext(ctx).Save(result).Error
}

func (r *ResultRepository) FindByID(ctx context.Context, id string) (*entity.Result, error) {
	var result entity.Result
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FindInWindow all results for one (point, parameter) pair analyzed
// inside [from, to). Joined through sample_params and samples so the
// compliance aggregator sees only the tenant's own data.
func (r *ResultRepository) FindInWindow(ctx context.Context, tenantID, pointID, parameterID string, from, to time.Time) ([]entity.Result, error) {
	var results []entity.Result
	err := r.db.WithContext(ctx).
		Joins("JOIN wq_sample_params sp ON sp.id = wq_results.sample_param_id").
		Joins("JOIN wq_samples s ON s.id = sp.sample_id").
		Where("s.tenant_id = ?", tenantID).
		Where("s.sampling_point_id = ?", pointID).
		Where("sp.parameter_id = ?", parameterID).
		Where("wq_results.analyzed_at >= ? AND wq_results.analyzed_at < ?", from, to).
		Find(&results).Error
	return results, err
}
