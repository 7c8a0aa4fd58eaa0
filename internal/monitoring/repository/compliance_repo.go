package repository

import (
	"context"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"gorm.io/gorm"
)

// ComplianceRepository aggregated compliance rows
type ComplianceRepository struct {
	db *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

// Upsert writes the record for its (point, parameter, period,
// granularity) key, replacing any prior row. Last writer wins; the
// figures are a pure function of committed results, so a concurrent
// recompute of the same key converges.
func (r *ComplianceRepository) Upsert(ctx context.Context, record *entity.Compliance) error {
	var existing entity.Compliance
	err := r.db.WithContext(ctx).
		Where("sampling_point_id = ? AND parameter_id = ? AND period_start = ? AND granularity = ?",
			record.SamplingPointID, record.ParameterID, record.PeriodStart, record.Granularity).
		First(&existing).Error
	if err != nil {
		if isNotFound(err) {
			return r.db.WithContext(ctx).Create(record).Error
		}
		return err
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// SummaryFilter narrows the stored rows a summary reads.
type SummaryFilter struct {
	Granularity string
	PeriodStart *time.Time
}

// filtered is shared by joined and unjoined readers, so every column
// is table-qualified; the joined catalog tables carry tenant_id too.
func (r *ComplianceRepository) filtered(ctx context.Context, tenantID string, filter SummaryFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entity.Compliance{}).Where("wq_compliance.tenant_id = ?", tenantID)
	if filter.Granularity != "" {
		q = q.Where("wq_compliance.granularity = ?", filter.Granularity)
	}
	if filter.PeriodStart != nil {
		q = q.Where("wq_compliance.period_start = ?", *filter.PeriodStart)
	}
	return q
}

// SummaryStats overall averages and totals over stored rows.
func (r *ComplianceRepository) SummaryStats(ctx context.Context, tenantID string, filter SummaryFilter) (avgPct float64, samples, breaches int64, err error) {
	row := r.filtered(ctx, tenantID, filter).
		Select("COALESCE(AVG(compliance_pct), 0), COALESCE(SUM(samples_taken), 0), COALESCE(SUM(breaches), 0)").
		Row()
	err = row.Scan(&avgPct, &samples, &breaches)
	return
}

// PointPerformance one sampling point's average compliance.
type PointPerformance struct {
	SamplingPointID string  `json:"sampling_point_id"`
	PointCode       string  `json:"point_code"`
	PointName       string  `json:"point_name"`
	AvgPct          float64 `json:"avg_pct"`
	Breaches        int     `json:"breaches"`
}

// WorstPoints the n worst-performing points by average compliance.
func (r *ComplianceRepository) WorstPoints(ctx context.Context, tenantID string, filter SummaryFilter, n int) ([]PointPerformance, error) {
	var rows []PointPerformance
	err := r.filtered(ctx, tenantID, filter).
		Select("wq_compliance.sampling_point_id, p.code AS point_code, p.name AS point_name, AVG(wq_compliance.compliance_pct) AS avg_pct, SUM(wq_compliance.breaches) AS breaches").
		Joins("JOIN wq_sampling_points p ON p.id = wq_compliance.sampling_point_id").
		Group("wq_compliance.sampling_point_id, p.code, p.name").
		Order("avg_pct ASC").
		Limit(n).
		Scan(&rows).Error
	return rows, err
}

// ParameterBreaches one parameter's accumulated breach count.
type ParameterBreaches struct {
	ParameterID   string `json:"parameter_id"`
	ParameterCode string `json:"parameter_code"`
	ParameterName string `json:"parameter_name"`
	Breaches      int    `json:"breaches"`
}

// TopBreachedParameters the n most-breached parameters.
func (r *ComplianceRepository) TopBreachedParameters(ctx context.Context, tenantID string, filter SummaryFilter, n int) ([]ParameterBreaches, error) {
	var rows []ParameterBreaches
	err := r.filtered(ctx, tenantID, filter).
		Select("wq_compliance.parameter_id, pa.code AS parameter_code, pa.name AS parameter_name, SUM(wq_compliance.breaches) AS breaches").
		Joins("JOIN wq_parameters pa ON pa.id = wq_compliance.parameter_id").
		Group("wq_compliance.parameter_id, pa.code, pa.name").
		Order("breaches DESC").
		Limit(n).
		Scan(&rows).Error
	return rows, err
}

func (r *ComplianceRepository) List(ctx context.Context, tenantID string, filter SummaryFilter, page, pageSize int) ([]entity.Compliance, int64, error) {
	var records []entity.Compliance
	var total int64

	q := r.filtered(ctx, tenantID, filter)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("period_start DESC, compliance_pct ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}
