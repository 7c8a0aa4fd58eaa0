package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// unitConversions fixed table rescaling an ingested value into the
// parameter's canonical unit. Unknown pairs pass through unchanged.
var unitConversions = map[[2]string]float64{
	{"µg/L", "mg/L"}:   0.001,
	{"ug/L", "mg/L"}:   0.001,
	{"mg/L", "µg/L"}:   1000,
	{"mg/L", "ug/L"}:   1000,
	{"FTU", "NTU"}:     1,
	{"NTU", "FTU"}:     1,
	{"µS/cm", "mS/cm"}: 0.001,
	{"uS/cm", "mS/cm"}: 0.001,
	{"mS/cm", "µS/cm"}: 1000,
	{"mS/cm", "uS/cm"}: 1000,
}

// harmonizeUnit converts value from its reported unit to the
// parameter's canonical unit when the pair is in the table.
func harmonizeUnit(value float64, fromUnit, canonicalUnit string) (float64, string) {
	if fromUnit == "" || canonicalUnit == "" || fromUnit == canonicalUnit {
		if fromUnit == "" {
			return value, canonicalUnit
		}
		return value, fromUnit
	}
	if factor, ok := unitConversions[[2]string{fromUnit, canonicalUnit}]; ok {
		return value * factor, canonicalUnit
	}
	return value, fromUnit
}

// csvHeader expected import header; uncertainty and lod are optional
// trailing columns.
var csvHeader = []string{"barcode", "parameter_code", "value", "unit", "analyzed_at", "instrument"}

// ResultService records analytical results and closes out sample
// completion.
type ResultService struct {
	sampleRepo *repository.SampleRepository
	paramRepo  *repository.ParameterRepository
	resultRepo *repository.ResultRepository
	qc         *QCService
	custody    *CustodyService
	db         *gorm.DB
	now        Clock
	logger     *zap.Logger
}

func NewResultService(
	sampleRepo *repository.SampleRepository,
	paramRepo *repository.ParameterRepository,
	resultRepo *repository.ResultRepository,
	qc *QCService,
	custody *CustodyService,
	db *gorm.DB,
	now Clock,
	logger *zap.Logger,
) *ResultService {
	return &ResultService{
		sampleRepo: sampleRepo,
		paramRepo:  paramRepo,
		resultRepo: resultRepo,
		qc:         qc,
		custody:    custody,
		db:         db,
		now:        now,
		logger:     logger,
	}
}

// CreateResultRequest one analytical result
type CreateResultRequest struct {
	SampleParamID  string     `json:"sample_param_id" binding:"required"`
	Value          *float64   `json:"value" binding:"required"`
	ValueQualifier string     `json:"value_qualifier"`
	Unit           string     `json:"unit"`
	AnalyzedAt     *time.Time `json:"analyzed_at"`
	Instrument     string     `json:"instrument"`
	LOD            *float64   `json:"lod"`
	Uncertainty    *float64   `json:"uncertainty"`
}

// CreateResult validates tenant ownership through the parent sample,
// stores the result, marks the pairing resulted and advances the
// sample to reported once every pairing is resulted. A pairing that is
// already resulted rejects the submission; corrections are an explicit
// re-analysis flow, not a silent overwrite.
func (s *ResultService) CreateResult(ctx context.Context, tenantID, operatorID string, req *CreateResultRequest) (*entity.Result, error) {
	sampleParam, err := s.sampleRepo.FindParamByID(ctx, req.SampleParamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sample param", req.SampleParamID)
		}
		return nil, err
	}

	// Ownership check: the parent sample must be visible to the tenant.
	sample, err := s.sampleRepo.FindByID(ctx, tenantID, sampleParam.SampleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sample param", req.SampleParamID)
		}
		return nil, err
	}

	parameter, err := s.paramRepo.FindByID(ctx, tenantID, sampleParam.ParameterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("parameter", sampleParam.ParameterID)
		}
		return nil, err
	}

	var result *entity.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.createOne(ctx, tx, operatorID, sample, sampleParam, parameter, req)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("result recorded",
		zap.String("sample_param_id", sampleParam.ID),
		zap.String("barcode", sample.Barcode),
		zap.Strings("qc_flags", result.QCFlags),
	)
	return result, nil
}

// createOne performs the shared creation path on the caller's
// transaction: harmonize unit, store, auto-flag, mark resulted,
// advance custody when the sample is complete.
func (s *ResultService) createOne(
	ctx context.Context,
	tx *gorm.DB,
	operatorID string,
	sample *entity.Sample,
	sampleParam *entity.SampleParam,
	parameter *entity.Parameter,
	req *CreateResultRequest,
) (*entity.Result, error) {
	if sampleParam.Status == entity.SampleParamStatusResulted {
		return nil, &InvalidStateError{Entity: "sample param", Current: sampleParam.Status, Attempted: "create_result"}
	}

	analyzedAt := s.now()
	if req.AnalyzedAt != nil {
		analyzedAt = *req.AnalyzedAt
	}

	value := req.Value
	unit := req.Unit
	if value != nil {
		converted, storedUnit := harmonizeUnit(*value, req.Unit, parameter.Unit)
		value = &converted
		unit = storedUnit
	}

	result := &entity.Result{
		ID:             uuid.New().String()[:32],
		SampleParamID:  sampleParam.ID,
		Value:          value,
		ValueQualifier: req.ValueQualifier,
		Unit:           unit,
		AnalyzedAt:     analyzedAt,
		AnalystID:      operatorID,
		Instrument:     req.Instrument,
		LOD:            req.LOD,
		Uncertainty:    req.Uncertainty,
	}
	s.qc.applyAutoFlags(result, parameter)

	if err := tx.Create(result).Error; err != nil {
		return nil, fmt.Errorf("create result: %w", err)
	}

	sampleParam.Status = entity.SampleParamStatusResulted
	if err := tx.Save(sampleParam).Error; err != nil {
		return nil, err
	}

	if err := s.advanceCustody(ctx, tx, sample, operatorID, analyzedAt); err != nil {
		return nil, err
	}
	return result, nil
}

// advanceCustody moves received_lab -> in_analysis on the first result
// and on to reported once no pairing remains unresulted. Reporting is
// only ever reached through this path.
func (s *ResultService) advanceCustody(ctx context.Context, tx *gorm.DB, sample *entity.Sample, operatorID string, at time.Time) error {
	if sample.CustodyState == entity.CustodyStateReceivedLab {
		sample.CustodyState = entity.CustodyStateInAnalysis
		if err := tx.Save(sample).Error; err != nil {
			return err
		}
		if err := s.custody.appendEvent(ctx, tx, sample.ID, entity.CustodyStateInAnalysis, at, operatorID, ""); err != nil {
			return err
		}
	}

	var remaining int64
	if err := tx.Model(&entity.SampleParam{}).
		Where("sample_id = ? AND status <> ?", sample.ID, entity.SampleParamStatusResulted).
		Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	if !entity.CanTransition(sample.CustodyState, entity.CustodyStateReported) {
		// Already reported, or the sample never went through the lab
		// intake flow; leave the state alone.
		return nil
	}
	sample.CustodyState = entity.CustodyStateReported
	if err := tx.Save(sample).Error; err != nil {
		return err
	}
	return s.custody.appendEvent(ctx, tx, sample.ID, entity.CustodyStateReported, at, operatorID, "")
}

// ImportFromCSV ingests results in bulk. Header:
// barcode,parameter_code,value,unit,analyzed_at,instrument[,uncertainty,lod]
// The batch is all-or-nothing: every failing row is reported with its
// physical line number and a single failure rolls back the whole file.
func (s *ResultService) ImportFromCSV(ctx context.Context, tenantID, operatorID, content string) (int, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return 0, invalidField("content", "malformed CSV: "+err.Error())
	}
	if len(records) == 0 {
		return 0, invalidField("content", "empty file")
	}

	header := records[0]
	if len(header) < len(csvHeader) {
		return 0, invalidField("header", "expected "+strings.Join(csvHeader, ","))
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return 0, invalidField("header", "column "+strconv.Itoa(i+1)+" must be "+want)
		}
	}

	imported := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rowErrs []RowError

		for i, record := range records[1:] {
			line := i + 2 // header is line 1
			if err := s.importRow(ctx, tx, tenantID, operatorID, record); err != nil {
				rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
				continue
			}
			imported++
		}

		if len(rowErrs) > 0 {
			return &BatchError{Rows: rowErrs}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("csv import committed",
		zap.Int("rows", imported),
		zap.String("operator", operatorID),
	)
	return imported, nil
}

func (s *ResultService) importRow(ctx context.Context, tx *gorm.DB, tenantID, operatorID string, record []string) error {
	if len(record) < len(csvHeader) {
		return fmt.Errorf("expected at least %d columns, got %d", len(csvHeader), len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	// Row lookups go through the batch transaction so earlier rows in
	// the same file are visible (sample completion, resulted params).
	var sample entity.Sample
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND barcode = ?", tenantID, record[0]).
		First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown barcode %q", record[0])
		}
		return err
	}

	var parameter entity.Parameter
	err = tx.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, record[1]).
		First(&parameter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown parameter code %q", record[1])
		}
		return err
	}

	var sampleParam entity.SampleParam
	err = tx.WithContext(ctx).
		Where("sample_id = ? AND parameter_id = ?", sample.ID, parameter.ID).
		First(&sampleParam).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("sample %s has no parameter %s", record[0], record[1])
		}
		return err
	}

	value, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", record[2])
	}

	req := &CreateResultRequest{
		SampleParamID: sampleParam.ID,
		Value:         &value,
		Unit:          record[3],
		Instrument:    record[5],
	}

	if record[4] != "" {
		analyzedAt, err := parseTimestamp(record[4])
		if err != nil {
			return fmt.Errorf("invalid analyzed_at %q", record[4])
		}
		req.AnalyzedAt = &analyzedAt
	}

	if len(record) > 6 && record[6] != "" {
		uncertainty, err := strconv.ParseFloat(record[6], 64)
		if err != nil {
			return fmt.Errorf("invalid uncertainty %q", record[6])
		}
		req.Uncertainty = &uncertainty
	}
	if len(record) > 7 && record[7] != "" {
		lod, err := strconv.ParseFloat(record[7], 64)
		if err != nil {
			return fmt.Errorf("invalid lod %q", record[7])
		}
		req.LOD = &lod
	}

	_, err = s.createOne(ctx, tx, operatorID, &sample, &sampleParam, &parameter, req)
	return err
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Get returns one result by id.
func (s *ResultService) Get(ctx context.Context, tenantID, id string) (*entity.Result, error) {
	result, err := s.resultRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("result", id)
		}
		return nil, err
	}

	// Visibility follows the parent sample's tenant.
	sampleParam, err := s.sampleRepo.FindParamByID(ctx, result.SampleParamID)
	if err != nil {
		return nil, notFound("result", id)
	}
	if _, err := s.sampleRepo.FindByID(ctx, tenantID, sampleParam.SampleID); err != nil {
		return nil, notFound("result", id)
	}
	return result, nil
}
