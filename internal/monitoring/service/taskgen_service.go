package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxBarcodeAttempts bound on the collision-retry loop. Past this the
// whole generation transaction fails rather than spinning.
const maxBarcodeAttempts = 8

const barcodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TaskGenService expands active-plan rules into concrete samples
type TaskGenService struct {
	planRepo   *repository.PlanRepository
	pointRepo  *repository.SamplingPointRepository
	paramRepo  *repository.ParameterRepository
	sampleRepo *repository.SampleRepository
	db         *gorm.DB
	now        Clock
	logger     *zap.Logger
	suffix     func(int) (string, error)
}

func NewTaskGenService(
	planRepo *repository.PlanRepository,
	pointRepo *repository.SamplingPointRepository,
	paramRepo *repository.ParameterRepository,
	sampleRepo *repository.SampleRepository,
	db *gorm.DB,
	now Clock,
	logger *zap.Logger,
) *TaskGenService {
	return &TaskGenService{
		planRepo:   planRepo,
		pointRepo:  pointRepo,
		paramRepo:  paramRepo,
		sampleRepo: sampleRepo,
		db:         db,
		now:        now,
		logger:     logger,
		suffix:     randomSuffix,
	}
}

// GenerateTasks expands every rule of an active plan into samples:
// matching points x matching parameters x date series x sample_count.
// Everything runs in one transaction so a mid-batch failure leaves no
// orphan samples or sample params.
func (s *TaskGenService) GenerateTasks(ctx context.Context, tenantID, planID, operatorID string) ([]entity.Sample, error) {
	plan, err := s.planRepo.FindByID(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("plan", planID)
		}
		return nil, err
	}
	if plan.Status != entity.PlanStatusActive {
		return nil, &InvalidStateError{Entity: "plan", Current: plan.Status, Attempted: "generate_tasks"}
	}

	var created []entity.Sample
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range plan.Rules {
			rule := &plan.Rules[i]

			points, err := s.pointRepo.FindActiveByKind(ctx, tenantID, rule.PointKind)
			if err != nil {
				return fmt.Errorf("load points for rule %s: %w", rule.ID, err)
			}
			params, err := s.paramRepo.FindActiveByGroup(ctx, tenantID, rule.ParameterGroup)
			if err != nil {
				return fmt.Errorf("load parameters for rule %s: %w", rule.ID, err)
			}
			if len(points) == 0 || len(params) == 0 {
				continue
			}

			dates := dateSeries(plan.PeriodStart, plan.PeriodEnd, rule.Frequency)

			for _, point := range points {
				for _, date := range dates {
					for n := 0; n < rule.SampleCount; n++ {
						sample, err := s.createScheduledSample(ctx, tx, tenantID, operatorID, plan, rule, point.ID, date, params)
						if err != nil {
							return err
						}
						created = append(created, *sample)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tasks generated",
		zap.String("plan_id", plan.ID),
		zap.Int("samples", len(created)),
	)
	return created, nil
}

// CreateAdhocRequest one-off sample outside any plan
type CreateAdhocRequest struct {
	SamplingPointID string    `json:"sampling_point_id" binding:"required"`
	ParameterIDs    []string  `json:"parameter_ids" binding:"required,min=1"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	Notes           string    `json:"notes"`
}

// CreateAdhocSample creates a single sample with an explicit parameter
// list. plan_id stays null, marking it ad hoc.
func (s *TaskGenService) CreateAdhocSample(ctx context.Context, tenantID, operatorID string, req *CreateAdhocRequest) (*entity.Sample, error) {
	point, err := s.pointRepo.FindByID(ctx, tenantID, req.SamplingPointID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sampling point", req.SamplingPointID)
		}
		return nil, err
	}

	var params []entity.Parameter
	for _, paramID := range req.ParameterIDs {
		param, err := s.paramRepo.FindByID(ctx, tenantID, paramID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("parameter", paramID)
			}
			return nil, err
		}
		params = append(params, *param)
	}

	scheduledFor := req.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = s.now()
	}

	var sample *entity.Sample
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		sample, txErr = s.createScheduledSample(ctx, tx, tenantID, operatorID, nil, nil, point.ID, scheduledFor, params)
		if txErr != nil {
			return txErr
		}
		if req.Notes != "" {
			sample.Notes = req.Notes
			return tx.Save(sample).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// createScheduledSample inserts one sample plus its param rows and the
// opening custody event, all on the caller's transaction.
func (s *TaskGenService) createScheduledSample(
	ctx context.Context,
	tx *gorm.DB,
	tenantID, operatorID string,
	plan *entity.Plan,
	rule *entity.PlanRule,
	pointID string,
	scheduledFor time.Time,
	params []entity.Parameter,
) (*entity.Sample, error) {
	barcode, err := s.generateBarcode(ctx, tx, scheduledFor)
	if err != nil {
		return nil, err
	}

	sample := &entity.Sample{
		ID:              uuid.New().String()[:32],
		TenantID:        tenantID,
		SamplingPointID: pointID,
		Barcode:         barcode,
		ScheduledFor:    scheduledFor,
		CustodyState:    entity.CustodyStateScheduled,
	}
	if plan != nil {
		sample.PlanID = &plan.ID
	}
	if rule != nil {
		sample.PlanRuleID = &rule.ID
	}
	if err := tx.Create(sample).Error; err != nil {
		return nil, fmt.Errorf("create sample: %w", err)
	}

	sampleParams := make([]entity.SampleParam, 0, len(params))
	for _, param := range params {
		sampleParams = append(sampleParams, entity.SampleParam{
			ID:          uuid.New().String()[:32],
			SampleID:    sample.ID,
			ParameterID: param.ID,
			Status:      entity.SampleParamStatusPending,
			Method:      param.Method,
		})
	}
	if err := tx.Create(&sampleParams).Error; err != nil {
		return nil, fmt.Errorf("create sample params: %w", err)
	}

	event := &entity.CustodyEvent{
		ID:        uuid.New().String()[:32],
		SampleID:  sample.ID,
		State:     entity.CustodyStateScheduled,
		Timestamp: s.now(),
		ActorID:   operatorID,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, fmt.Errorf("create custody event: %w", err)
	}

	sample.Params = sampleParams
	return sample, nil
}

// generateBarcode produces WQ<YYYYMMDD>-<6 uppercase alnum>, retrying
// on collision up to maxBarcodeAttempts before failing the batch.
func (s *TaskGenService) generateBarcode(ctx context.Context, tx *gorm.DB, date time.Time) (string, error) {
	prefix := "WQ" + date.Format("20060102")

	for attempt := 0; attempt < maxBarcodeAttempts; attempt++ {
		suffix, err := s.suffix(6)
		if err != nil {
			return "", err
		}
		barcode := prefix + "-" + suffix

		var count int64
		if err := tx.WithContext(ctx).
			Model(&entity.Sample{}).
			Where("barcode = ?", barcode).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return barcode, nil
		}
	}
	return "", ErrBarcodeExhausted
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = barcodeCharset[int(b)%len(barcodeCharset)]
	}
	return string(out), nil
}

// dateSeries steps from start to end (inclusive) by frequency. adhoc
// yields exactly the period start.
func dateSeries(start, end time.Time, frequency string) []time.Time {
	if frequency == entity.FrequencyAdhoc {
		return []time.Time{start}
	}

	var dates []time.Time
	for d := start; !d.After(end); {
		dates = append(dates, d)
		switch frequency {
		case entity.FrequencyDaily:
			d = d.AddDate(0, 0, 1)
		case entity.FrequencyWeekly:
			d = d.AddDate(0, 0, 7)
		case entity.FrequencyMonthly:
			d = d.AddDate(0, 1, 0)
		case entity.FrequencyQuarterly:
			d = d.AddDate(0, 3, 0)
		default:
			return dates
		}
	}
	return dates
}
