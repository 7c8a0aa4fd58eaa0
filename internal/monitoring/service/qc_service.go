package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// blankThreshold fixed absolute pass threshold for blank controls.
const blankThreshold = 0.1

// defaultToleranceFraction fallback when accepted_range is missing or
// unparseable.
const defaultToleranceFraction = 0.1

// QCService judges QC control readings and auto-flags regular results
// against detection and regulatory limits.
type QCService struct {
	qcRepo     *repository.QcControlRepository
	sampleRepo *repository.SampleRepository
	paramRepo  *repository.ParameterRepository
	resultRepo *repository.ResultRepository
	now        Clock
	logger     *zap.Logger
}

func NewQCService(
	qcRepo *repository.QcControlRepository,
	sampleRepo *repository.SampleRepository,
	paramRepo *repository.ParameterRepository,
	resultRepo *repository.ResultRepository,
	now Clock,
	logger *zap.Logger,
) *QCService {
	return &QCService{
		qcRepo:     qcRepo,
		sampleRepo: sampleRepo,
		paramRepo:  paramRepo,
		resultRepo: resultRepo,
		now:        now,
		logger:     logger,
	}
}

// CreateControlRequest new QC control reading
type CreateControlRequest struct {
	SampleID      *string  `json:"sample_id"`
	ParameterID   *string  `json:"parameter_id"`
	Type          string   `json:"type" binding:"required"`
	TargetValue   *float64 `json:"target_value"`
	AcceptedRange string   `json:"accepted_range"`
}

func (s *QCService) CreateControl(ctx context.Context, tenantID, userID string, req *CreateControlRequest) (*entity.QcControl, error) {
	if !entity.ValidControlTypes[req.Type] {
		return nil, invalidField("type", "unknown control type "+req.Type)
	}
	if req.SampleID != nil {
		if _, err := s.sampleRepo.FindByID(ctx, tenantID, *req.SampleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("sample", *req.SampleID)
			}
			return nil, err
		}
	}
	if req.ParameterID != nil {
		if _, err := s.paramRepo.FindByID(ctx, tenantID, *req.ParameterID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("parameter", *req.ParameterID)
			}
			return nil, err
		}
	}

	control := &entity.QcControl{
		ID:            uuid.New().String()[:32],
		TenantID:      tenantID,
		SampleID:      req.SampleID,
		ParameterID:   req.ParameterID,
		Type:          req.Type,
		TargetValue:   req.TargetValue,
		AcceptedRange: req.AcceptedRange,
		CreatedBy:     userID,
	}
	if err := s.qcRepo.Create(ctx, control); err != nil {
		return nil, err
	}
	return control, nil
}

// EvaluateControl judges one control reading and persists the outcome
// plus a details blob with the measured value and evaluation time.
func (s *QCService) EvaluateControl(ctx context.Context, tenantID, controlID string, measuredValue float64) (*entity.QcControl, error) {
	control, err := s.qcRepo.FindByID(ctx, tenantID, controlID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("qc control", controlID)
		}
		return nil, err
	}

	control.Outcome = judgeControl(control, measuredValue)
	control.Details = entity.JSONB{
		"measured_value": measuredValue,
		"evaluated_at":   s.now().Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := s.qcRepo.Update(ctx, control); err != nil {
		return nil, err
	}

	s.logger.Info("qc control evaluated",
		zap.String("control_id", control.ID),
		zap.String("type", control.Type),
		zap.String("outcome", control.Outcome),
	)
	return control, nil
}

// judgeControl outcome rules per control type. Types without a defined
// procedure (and target-less spikes/control samples) pass.
func judgeControl(control *entity.QcControl, measured float64) string {
	switch control.Type {
	case entity.ControlTypeBlank:
		if measured < blankThreshold {
			return entity.OutcomePass
		}
		return entity.OutcomeFail

	case entity.ControlTypeControlSample:
		if control.TargetValue == nil {
			return entity.OutcomePass
		}
		target := *control.TargetValue
		tolerance := parseToleranceFraction(control.AcceptedRange) * math.Abs(target)
		diff := math.Abs(measured - target)
		switch {
		case diff <= tolerance:
			return entity.OutcomePass
		case diff <= 1.5*tolerance:
			return entity.OutcomeWarn
		default:
			return entity.OutcomeFail
		}

	case entity.ControlTypeSpike:
		if control.TargetValue == nil || *control.TargetValue == 0 {
			return entity.OutcomePass
		}
		recovery := measured / *control.TargetValue * 100
		switch {
		case recovery >= 90 && recovery <= 110:
			return entity.OutcomePass
		case recovery >= 80 && recovery <= 120:
			return entity.OutcomeWarn
		default:
			return entity.OutcomeFail
		}

	default:
		return entity.OutcomePass
	}
}

// parseToleranceFraction parses "±X%" into X/100, falling back to the
// default fraction when the string does not parse.
func parseToleranceFraction(acceptedRange string) float64 {
	raw := strings.TrimSpace(acceptedRange)
	raw = strings.TrimPrefix(raw, "±")
	raw = strings.TrimPrefix(raw, "+/-")
	raw = strings.TrimSuffix(raw, "%")
	pct, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || pct <= 0 {
		return defaultToleranceFraction
	}
	return pct / 100
}

// applyAutoFlags recomputes a result's qc flags in full. The limit
// checks are independent; several can fire on the same value.
func (s *QCService) applyAutoFlags(result *entity.Result, parameter *entity.Parameter) {
	var flags entity.StringArray
	if result.Value == nil {
		result.QCFlags = flags
		return
	}
	value := *result.Value

	if result.LOD != nil && value < *result.LOD {
		flags = append(flags, entity.FlagBelowLOD)
		result.ValueQualifier = entity.QualifierBelow
	}
	if parameter.WHOLimit != nil && value > *parameter.WHOLimit {
		flags = append(flags, entity.FlagExceedsWHOLimit)
	}
	if parameter.WasrebLimit != nil && value > *parameter.WasrebLimit {
		flags = append(flags, entity.FlagExceedsWasrebLimit)
	}
	if parameter.LocalLimit != nil && value > *parameter.LocalLimit {
		flags = append(flags, entity.FlagExceedsLocalLimit)
	}
	if result.Uncertainty != nil && value != 0 && *result.Uncertainty/value > 0.2 {
		flags = append(flags, entity.FlagHighUncertainty)
	}

	result.QCFlags = flags
}

// AutoFlagResult re-evaluates one stored result against its parameter
// and overwrites the qc flags.
func (s *QCService) AutoFlagResult(ctx context.Context, tenantID, resultID string) (*entity.Result, error) {
	result, err := s.resultRepo.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("result", resultID)
		}
		return nil, err
	}

	sampleParam, err := s.sampleRepo.FindParamByID(ctx, result.SampleParamID)
	if err != nil {
		return nil, notFound("result", resultID)
	}
	if _, err := s.sampleRepo.FindByID(ctx, tenantID, sampleParam.SampleID); err != nil {
		return nil, notFound("result", resultID)
	}
	parameter, err := s.paramRepo.FindByID(ctx, tenantID, sampleParam.ParameterID)
	if err != nil {
		return nil, notFound("result", resultID)
	}

	s.applyAutoFlags(result, parameter)
	if err := s.resultRepo.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListControls stored controls, optionally by type.
func (s *QCService) ListControls(ctx context.Context, tenantID string, page, pageSize int, controlType string) ([]entity.QcControl, int64, error) {
	return s.qcRepo.List(ctx, tenantID, page, pageSize, controlType)
}

// ListControlsBySample controls attached to one sample.
func (s *QCService) ListControlsBySample(ctx context.Context, tenantID, sampleID string) ([]entity.QcControl, error) {
	return s.qcRepo.ListBySample(ctx, tenantID, sampleID)
}

// CalculateRPD relative percent difference between duplicate readings.
// Zero when the average is zero.
func CalculateRPD(v1, v2 float64) float64 {
	avg := (v1 + v2) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(v1-v2) / avg * 100
}
