package service

import (
	"testing"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/aquatrack/waterlab/internal/monitoring/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOperator = "test-user-001"

// fixedClock pins service time so scheduled dates and custody
// timestamps are deterministic.
func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func floatPtr(v float64) *float64 { return &v }

func seedPoint(t *testing.T, db *gorm.DB, id, code, kind string) *entity.SamplingPoint {
	t.Helper()
	point := &entity.SamplingPoint{
		ID:       id,
		TenantID: testutil.TestTenant,
		Code:     code,
		Name:     "Point " + code,
		Kind:     kind,
		IsActive: true,
	}
	if err := db.Create(point).Error; err != nil {
		t.Fatalf("Failed to seed point %s: %v", code, err)
	}
	return point
}

func seedParameter(t *testing.T, db *gorm.DB, id, code, group, unit string, whoLimit *float64) *entity.Parameter {
	t.Helper()
	param := &entity.Parameter{
		ID:       id,
		TenantID: testutil.TestTenant,
		Code:     code,
		Name:     "Parameter " + code,
		Group:    group,
		Unit:     unit,
		WHOLimit: whoLimit,
		IsActive: true,
	}
	if err := db.Create(param).Error; err != nil {
		t.Fatalf("Failed to seed parameter %s: %v", code, err)
	}
	return param
}

// seedSample writes a sample directly, bypassing generation, for
// custody and result tests that need a known starting state.
func seedSample(t *testing.T, db *gorm.DB, id, pointID, barcode, state string) *entity.Sample {
	t.Helper()
	sample := &entity.Sample{
		ID:              id,
		TenantID:        testutil.TestTenant,
		SamplingPointID: pointID,
		Barcode:         barcode,
		ScheduledFor:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		CustodyState:    state,
	}
	if err := db.Create(sample).Error; err != nil {
		t.Fatalf("Failed to seed sample %s: %v", barcode, err)
	}
	return sample
}

func seedSampleParam(t *testing.T, db *gorm.DB, id, sampleID, parameterID, status string) *entity.SampleParam {
	t.Helper()
	sp := &entity.SampleParam{
		ID:          id,
		SampleID:    sampleID,
		ParameterID: parameterID,
		Status:      status,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("Failed to seed sample param %s: %v", id, err)
	}
	return sp
}

func newTestServices(t *testing.T, at time.Time) (*gorm.DB, *repository.Repositories, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	clock := fixedClock(at)

	catalogSvc := NewCatalogService(repos.Point, repos.Parameter)
	planSvc := NewPlanService(repos.Plan, clock, logger)
	taskGenSvc := NewTaskGenService(repos.Plan, repos.Point, repos.Parameter, repos.Sample, db, clock, logger)
	custodySvc := NewCustodyService(repos.Sample, db, clock, logger)
	qcSvc := NewQCService(repos.QcControl, repos.Sample, repos.Parameter, repos.Result, clock, logger)
	resultSvc := NewResultService(repos.Sample, repos.Parameter, repos.Result, qcSvc, custodySvc, db, clock, logger)
	complianceSvc := NewComplianceService(repos.Point, repos.Parameter, repos.Result, repos.Compliance, nil, clock, logger)

	return db, repos, &Services{
		Catalog:    catalogSvc,
		Plan:       planSvc,
		TaskGen:    taskGenSvc,
		Custody:    custodySvc,
		Result:     resultSvc,
		QC:         qcSvc,
		Compliance: complianceSvc,
	}
}
