package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/testutil"
)

var barcodePattern = regexp.MustCompile(`^WQ\d{8}-[A-Z0-9]{6}$`)

func TestGenerateTasksMonthly(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-001", "SRC-01", entity.PointKindSource)
	seedPoint(t, db, "point-002", "SRC-02", entity.PointKindSource)
	// Different kind, must not match the rule.
	seedPoint(t, db, "point-003", "TAP-01", entity.PointKindConsumerTap)

	seedParameter(t, db, "param-001", "ECOLI", entity.ParamGroupBacteriological, "CFU/100mL", floatPtr(0))
	seedParameter(t, db, "param-002", "TCOLI", entity.ParamGroupBacteriological, "CFU/100mL", floatPtr(0))
	seedParameter(t, db, "param-003", "FSTREP", entity.ParamGroupBacteriological, "CFU/100mL", nil)

	plan, err := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Q1 Source Monitoring",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	_, err = svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, &AddRuleRequest{
		PointKind:      entity.PointKindSource,
		ParameterGroup: entity.ParamGroupBacteriological,
		Frequency:      entity.FrequencyMonthly,
	})
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	if _, err := svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID); err != nil {
		t.Fatalf("ActivatePlan failed: %v", err)
	}

	samples, err := svc.TaskGen.GenerateTasks(ctx, testutil.TestTenant, plan.ID, testOperator)
	if err != nil {
		t.Fatalf("GenerateTasks failed: %v", err)
	}

	// 2 matching points x 3 monthly dates (Jan 1, Feb 1, Mar 1).
	if len(samples) != 6 {
		t.Fatalf("Expected 6 samples, got %d", len(samples))
	}

	seen := map[string]bool{}
	for _, sample := range samples {
		if !barcodePattern.MatchString(sample.Barcode) {
			t.Errorf("Barcode %q does not match the expected format", sample.Barcode)
		}
		if seen[sample.Barcode] {
			t.Errorf("Duplicate barcode %q", sample.Barcode)
		}
		seen[sample.Barcode] = true

		if sample.CustodyState != entity.CustodyStateScheduled {
			t.Errorf("Expected scheduled state, got %s", sample.CustodyState)
		}
		if sample.PlanID == nil || *sample.PlanID != plan.ID {
			t.Errorf("Expected plan id %s on generated sample", plan.ID)
		}
		if len(sample.Params) != 3 {
			t.Errorf("Expected 3 params per sample, got %d", len(sample.Params))
		}
		for _, sp := range sample.Params {
			if sp.Status != entity.SampleParamStatusPending {
				t.Errorf("Expected pending param, got %s", sp.Status)
			}
		}
	}

	// Every generated sample opens its custody chain.
	var events int64
	db.Model(&entity.CustodyEvent{}).Where("state = ?", entity.CustodyStateScheduled).Count(&events)
	if events != 6 {
		t.Errorf("Expected 6 opening custody events, got %d", events)
	}
}

func TestGenerateTasksRequiresActivePlan(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, err := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Draft Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	_, err = svc.TaskGen.GenerateTasks(ctx, testutil.TestTenant, plan.ID, testOperator)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != entity.PlanStatusDraft {
		t.Errorf("Expected current state draft, got %s", stateErr.Current)
	}
}

func TestGenerateTasksSampleCountMultiplier(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-010", "DST-01", entity.PointKindDistribution)
	seedParameter(t, db, "param-010", "FRC", entity.ParamGroupChemical, "mg/L", floatPtr(5))

	plan, _ := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Weekly Residuals",
		PeriodStart: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC),
	})
	_, err := svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, &AddRuleRequest{
		PointKind:      entity.PointKindDistribution,
		ParameterGroup: entity.ParamGroupChemical,
		Frequency:      entity.FrequencyWeekly,
		SampleCount:    2,
	})
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}
	svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID)

	samples, err := svc.TaskGen.GenerateTasks(ctx, testutil.TestTenant, plan.ID, testOperator)
	if err != nil {
		t.Fatalf("GenerateTasks failed: %v", err)
	}
	// 1 point x 3 weekly dates (Jan 5, 12, 19) x 2 samples each.
	if len(samples) != 6 {
		t.Fatalf("Expected 6 samples, got %d", len(samples))
	}
}

func TestCreateAdhocSample(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 30, 0, 0, time.UTC)
	db, repos, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-020", "RES-01", entity.PointKindReservoir)
	seedParameter(t, db, "param-020", "PH", entity.ParamGroupPhysical, "", nil)
	seedParameter(t, db, "param-021", "TURB", entity.ParamGroupPhysical, "NTU", floatPtr(5))

	sample, err := svc.TaskGen.CreateAdhocSample(ctx, testutil.TestTenant, testOperator, &CreateAdhocRequest{
		SamplingPointID: "point-020",
		ParameterIDs:    []string{"param-020", "param-021"},
		Notes:           "Complaint follow-up",
	})
	if err != nil {
		t.Fatalf("CreateAdhocSample failed: %v", err)
	}

	if sample.PlanID != nil {
		t.Errorf("Ad hoc sample must not carry a plan id, got %v", *sample.PlanID)
	}
	if !sample.ScheduledFor.Equal(now) {
		t.Errorf("Expected scheduled_for to default to now, got %v", sample.ScheduledFor)
	}
	if sample.Notes != "Complaint follow-up" {
		t.Errorf("Notes not persisted, got %q", sample.Notes)
	}
	if len(sample.Params) != 2 {
		t.Fatalf("Expected 2 params, got %d", len(sample.Params))
	}

	params, err := repos.Sample.ParamsBySample(ctx, sample.ID)
	if err != nil {
		t.Fatalf("ParamsBySample failed: %v", err)
	}
	if len(params) != 2 {
		t.Errorf("Expected 2 persisted params, got %d", len(params))
	}
}

func TestCreateAdhocSampleUnknownParameter(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 30, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-030", "RES-02", entity.PointKindReservoir)

	_, err := svc.TaskGen.CreateAdhocSample(ctx, testutil.TestTenant, testOperator, &CreateAdhocRequest{
		SamplingPointID: "point-030",
		ParameterIDs:    []string{"no-such-param"},
	})
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestDateSeries(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	if got := len(dateSeries(start, end, entity.FrequencyQuarterly)); got != 4 {
		t.Errorf("Expected 4 quarterly dates, got %d", got)
	}
	if got := len(dateSeries(start, end, entity.FrequencyMonthly)); got != 12 {
		t.Errorf("Expected 12 monthly dates, got %d", got)
	}
	if got := len(dateSeries(start, start, entity.FrequencyDaily)); got != 1 {
		t.Errorf("Expected 1 daily date for a single-day window, got %d", got)
	}
	adhoc := dateSeries(start, end, entity.FrequencyAdhoc)
	if len(adhoc) != 1 || !adhoc[0].Equal(start) {
		t.Errorf("Expected ad hoc series to be the start date only, got %v", adhoc)
	}
}

func TestGenerateBarcodeRetriesOnCollision(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 30, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-060", "RES-02", entity.PointKindReservoir)
	seedParameter(t, db, "param-060", "PH", entity.ParamGroupPhysical, "", nil)

	// The first candidate is already taken; the second must win.
	seedSample(t, db, "smp-060", "point-060", "WQ20260214-AAAAAA", entity.CustodyStateScheduled)
	suffixes := []string{"AAAAAA", "BBBBBB"}
	svc.TaskGen.suffix = func(n int) (string, error) {
		next := suffixes[0]
		suffixes = suffixes[1:]
		return next, nil
	}

	sample, err := svc.TaskGen.CreateAdhocSample(ctx, testutil.TestTenant, testOperator, &CreateAdhocRequest{
		SamplingPointID: "point-060",
		ParameterIDs:    []string{"param-060"},
	})
	if err != nil {
		t.Fatalf("CreateAdhocSample failed: %v", err)
	}
	if sample.Barcode != "WQ20260214-BBBBBB" {
		t.Errorf("Expected retry to pick the second suffix, got %s", sample.Barcode)
	}
	if len(suffixes) != 0 {
		t.Errorf("Expected both suffixes consumed, %d left", len(suffixes))
	}
}

func TestGenerateBarcodeExhaustsRetryBound(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 30, 0, 0, time.UTC)
	db, repos, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-061", "RES-03", entity.PointKindReservoir)
	seedParameter(t, db, "param-061", "PH", entity.ParamGroupPhysical, "", nil)

	seedSample(t, db, "smp-061", "point-061", "WQ20260214-CCCCCC", entity.CustodyStateScheduled)
	attempts := 0
	svc.TaskGen.suffix = func(n int) (string, error) {
		attempts++
		return "CCCCCC", nil
	}

	_, err := svc.TaskGen.CreateAdhocSample(ctx, testutil.TestTenant, testOperator, &CreateAdhocRequest{
		SamplingPointID: "point-061",
		ParameterIDs:    []string{"param-061"},
	})
	if !errors.Is(err, ErrBarcodeExhausted) {
		t.Fatalf("Expected ErrBarcodeExhausted, got %v", err)
	}
	if attempts != maxBarcodeAttempts {
		t.Errorf("Expected %d attempts, got %d", maxBarcodeAttempts, attempts)
	}

	// The failed batch must leave nothing behind.
	samples, total, err := repos.Sample.List(ctx, testutil.TestTenant, 1, 50, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(samples) != 1 {
		t.Errorf("Expected only the seeded sample to survive, got %d", total)
	}
}
