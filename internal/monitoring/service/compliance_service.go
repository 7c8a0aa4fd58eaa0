package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// summaryCacheTTL how long a cached dashboard summary stays valid.
const summaryCacheTTL = 5 * time.Minute

// ComplianceService aggregates results into per-period compliance rows
// and serves dashboard summaries over them.
type ComplianceService struct {
	pointRepo      *repository.SamplingPointRepository
	paramRepo      *repository.ParameterRepository
	resultRepo     *repository.ResultRepository
	complianceRepo *repository.ComplianceRepository
	rdb            *redis.Client
	now            Clock
	logger         *zap.Logger
}

func NewComplianceService(
	pointRepo *repository.SamplingPointRepository,
	paramRepo *repository.ParameterRepository,
	resultRepo *repository.ResultRepository,
	complianceRepo *repository.ComplianceRepository,
	rdb *redis.Client,
	now Clock,
	logger *zap.Logger,
) *ComplianceService {
	return &ComplianceService{
		pointRepo:      pointRepo,
		paramRepo:      paramRepo,
		resultRepo:     resultRepo,
		complianceRepo: complianceRepo,
		rdb:            rdb,
		now:            now,
		logger:         logger,
	}
}

// periodWindow normalizes an arbitrary instant to the start of its
// containing period and returns the half-open [start, end) window.
// Weeks start on Monday.
func periodWindow(t time.Time, granularity string) (time.Time, time.Time) {
	switch granularity {
	case entity.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case entity.GranularityQuarter:
		quarterMonth := time.Month((int(t.Month())-1)/3*3 + 1)
		start := time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 3, 0)
	default: // month
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

// ComputeCompliance recomputes the row for one (point, parameter,
// period) key from the stored results. Idempotent; rerunning over
// unchanged results writes the same figures.
func (s *ComplianceService) ComputeCompliance(ctx context.Context, tenantID, pointID, parameterID string, periodStart time.Time, granularity string) (*entity.Compliance, error) {
	if !entity.ValidGranularities[granularity] {
		return nil, invalidField("granularity", "unknown granularity "+granularity)
	}
	if _, err := s.pointRepo.FindByID(ctx, tenantID, pointID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sampling point", pointID)
		}
		return nil, err
	}
	parameter, err := s.paramRepo.FindByID(ctx, tenantID, parameterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("parameter", parameterID)
		}
		return nil, err
	}

	record, err := s.buildRecord(ctx, tenantID, pointID, parameter, periodStart, granularity)
	if err != nil {
		return nil, err
	}
	if err := s.persistRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// buildRecord aggregates the window's results into a compliance row
// without persisting it. An empty window reads 0%.
func (s *ComplianceService) buildRecord(ctx context.Context, tenantID, pointID string, parameter *entity.Parameter, periodStart time.Time, granularity string) (*entity.Compliance, error) {
	from, to := periodWindow(periodStart, granularity)
	results, err := s.resultRepo.FindInWindow(ctx, tenantID, pointID, parameter.ID, from, to)
	if err != nil {
		return nil, err
	}

	limit := parameter.EffectiveLimit()
	taken := len(results)
	compliant := 0
	var worst *float64
	for i := range results {
		value := results[i].Value
		if value == nil {
			compliant++
			continue
		}
		if worst == nil || *value > *worst {
			worst = value
		}
		if limit == nil || *value <= *limit {
			compliant++
		}
	}

	pct := 0.0
	if taken > 0 {
		pct = float64(compliant) / float64(taken) * 100
	}

	return &entity.Compliance{
		ID:               uuid.New().String()[:32],
		TenantID:         tenantID,
		SamplingPointID:  pointID,
		ParameterID:      parameter.ID,
		PeriodStart:      from,
		Granularity:      granularity,
		SamplesTaken:     taken,
		SamplesCompliant: compliant,
		CompliancePct:    pct,
		WorstValue:       worst,
		Breaches:         taken - compliant,
		ComputedAt:       s.now(),
	}, nil
}

func (s *ComplianceService) persistRecord(ctx context.Context, record *entity.Compliance) error {
	if err := s.complianceRepo.Upsert(ctx, record); err != nil {
		return err
	}
	s.invalidateSummary(ctx, record.TenantID, record.Granularity, record.PeriodStart)

	s.logger.Info("compliance computed",
		zap.String("sampling_point_id", record.SamplingPointID),
		zap.String("parameter_id", record.ParameterID),
		zap.String("granularity", record.Granularity),
		zap.Time("period_start", record.PeriodStart),
		zap.Int("samples_taken", record.SamplesTaken),
		zap.Int("breaches", record.Breaches),
	)
	return nil
}

// ComputeAllCompliance sweeps every active (point, parameter) pair for
// one period. Pairs with no results in the window are skipped, so the
// sweep never writes rows for never-sampled pairs; a failing pair is
// logged and skipped so one bad key does not abort the sweep. Returns
// the number of rows written.
func (s *ComplianceService) ComputeAllCompliance(ctx context.Context, tenantID string, periodStart time.Time, granularity string) (int, error) {
	if !entity.ValidGranularities[granularity] {
		return 0, invalidField("granularity", "unknown granularity "+granularity)
	}

	points, err := s.pointRepo.FindActive(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	params, err := s.paramRepo.FindActive(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	computed := 0
	for i := range points {
		for j := range params {
			record, err := s.buildRecord(ctx, tenantID, points[i].ID, &params[j], periodStart, granularity)
			if err == nil && record.SamplesTaken > 0 {
				err = s.persistRecord(ctx, record)
			}
			if err != nil {
				s.logger.Warn("compliance sweep pair failed",
					zap.String("sampling_point_id", points[i].ID),
					zap.String("parameter_id", params[j].ID),
					zap.Error(err),
				)
				continue
			}
			if record.SamplesTaken == 0 {
				continue
			}
			computed++
		}
	}
	return computed, nil
}

// ComplianceSummary dashboard view over the stored compliance rows.
type ComplianceSummary struct {
	OverallPct    float64                        `json:"overall_pct"`
	Grade         string                         `json:"grade"`
	SamplesTaken  int64                          `json:"samples_taken"`
	Breaches      int64                          `json:"breaches"`
	WorstPoints   []repository.PointPerformance  `json:"worst_points"`
	TopParameters []repository.ParameterBreaches `json:"top_parameters"`
	GeneratedAt   time.Time                      `json:"generated_at"`
}

func summaryCacheKey(tenantID, granularity string, periodStart *time.Time) string {
	period := "all"
	if periodStart != nil {
		period = periodStart.Format("2006-01-02")
	}
	return fmt.Sprintf("waterlab:summary:%s:%s:%s", tenantID, granularity, period)
}

// GetComplianceSummary builds the dashboard summary, read through the
// redis cache when one is configured.
func (s *ComplianceService) GetComplianceSummary(ctx context.Context, tenantID string, filter repository.SummaryFilter) (*ComplianceSummary, error) {
	cacheKey := summaryCacheKey(tenantID, filter.Granularity, filter.PeriodStart)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var summary ComplianceSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	avgPct, samples, breaches, err := s.complianceRepo.SummaryStats(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	worstPoints, err := s.complianceRepo.WorstPoints(ctx, tenantID, filter, 5)
	if err != nil {
		return nil, err
	}
	topParams, err := s.complianceRepo.TopBreachedParameters(ctx, tenantID, filter, 5)
	if err != nil {
		return nil, err
	}

	summary := &ComplianceSummary{
		OverallPct:    avgPct,
		Grade:         entity.GradeFor(avgPct),
		SamplesTaken:  samples,
		Breaches:      breaches,
		WorstPoints:   worstPoints,
		TopParameters: topParams,
		GeneratedAt:   s.now(),
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, payload, summaryCacheTTL).Err(); err != nil {
				s.logger.Warn("summary cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// invalidateSummary drops the cached summaries a recompute makes stale.
func (s *ComplianceService) invalidateSummary(ctx context.Context, tenantID, granularity string, periodStart time.Time) {
	if s.rdb == nil {
		return
	}
	keys := []string{
		summaryCacheKey(tenantID, granularity, &periodStart),
		summaryCacheKey(tenantID, granularity, nil),
		summaryCacheKey(tenantID, "", nil),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

// ListCompliance stored rows, filtered and paginated.
func (s *ComplianceService) ListCompliance(ctx context.Context, tenantID string, filter repository.SummaryFilter, page, pageSize int) ([]entity.Compliance, int64, error) {
	return s.complianceRepo.List(ctx, tenantID, filter, page, pageSize)
}

// ExportComplianceXlsx renders the stored rows into a spreadsheet for
// regulator submission.
func (s *ComplianceService) ExportComplianceXlsx(ctx context.Context, tenantID string, filter repository.SummaryFilter) (*excelize.File, error) {
	records, _, err := s.complianceRepo.List(ctx, tenantID, filter, 1, 10000)
	if err != nil {
		return nil, err
	}

	pointNames := make(map[string]string)
	paramNames := make(map[string]string)
	for i := range records {
		if _, ok := pointNames[records[i].SamplingPointID]; !ok {
			point, err := s.pointRepo.FindByID(ctx, tenantID, records[i].SamplingPointID)
			if err != nil {
				return nil, err
			}
			pointNames[point.ID] = fmt.Sprintf("%s %s", point.Code, point.Name)
		}
		if _, ok := paramNames[records[i].ParameterID]; !ok {
			param, err := s.paramRepo.FindByID(ctx, tenantID, records[i].ParameterID)
			if err != nil {
				return nil, err
			}
			paramNames[param.ID] = fmt.Sprintf("%s %s", param.Code, param.Name)
		}
	}

	f := excelize.NewFile()
	sheet := "Compliance"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Sampling Point", "Parameter", "Period Start", "Granularity",
		"Samples Taken", "Samples Compliant", "Compliance %", "Worst Value", "Breaches", "Grade"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, record := range records {
		values := []interface{}{
			pointNames[record.SamplingPointID],
			paramNames[record.ParameterID],
			record.PeriodStart.Format("2006-01-02"),
			record.Granularity,
			record.SamplesTaken,
			record.SamplesCompliant,
			record.CompliancePct,
			"",
			record.Breaches,
			entity.GradeFor(record.CompliancePct),
		}
		if record.WorstValue != nil {
			values[7] = *record.WorstValue
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f, nil
}
