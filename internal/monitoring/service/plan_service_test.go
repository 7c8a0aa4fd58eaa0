package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/testutil"
)

func TestCreatePlanValidatesPeriod(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	_, err := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Backwards Period",
		PeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if valErr.Field != "period_end" {
		t.Errorf("Expected field period_end, got %s", valErr.Field)
	}

	// Equal start and end is also rejected.
	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Zero Period",
		PeriodStart: same,
		PeriodEnd:   same,
	})
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for equal period, got %v", err)
	}
}

func TestAddRuleOnlyOnDraft(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, err := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Locked Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	rule := &AddRuleRequest{
		PointKind:      entity.PointKindSource,
		ParameterGroup: entity.ParamGroupChemical,
		Frequency:      entity.FrequencyWeekly,
	}
	if _, err := svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, rule); err != nil {
		t.Fatalf("AddRule on draft failed: %v", err)
	}
	if _, err := svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID); err != nil {
		t.Fatalf("ActivatePlan failed: %v", err)
	}

	_, err = svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, rule)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError on active plan, got %v", err)
	}
}

func TestAddRuleRejectsUnknownEnums(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, _ := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Enum Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	cases := []struct {
		name string
		req  AddRuleRequest
	}{
		{"bad kind", AddRuleRequest{PointKind: "ocean", ParameterGroup: entity.ParamGroupChemical, Frequency: entity.FrequencyWeekly}},
		{"bad group", AddRuleRequest{PointKind: entity.PointKindSource, ParameterGroup: "radioactive", Frequency: entity.FrequencyWeekly}},
		{"bad frequency", AddRuleRequest{PointKind: entity.PointKindSource, ParameterGroup: entity.ParamGroupChemical, Frequency: "hourly"}},
	}
	for _, tc := range cases {
		_, err := svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, &tc.req)
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestActivatePlanRequiresRules(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, _ := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Empty Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	_, err := svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for plan without rules, got %v", err)
	}
}

func TestActivatePlanTwice(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, _ := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Twice Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	svc.Plan.AddRule(ctx, testutil.TestTenant, plan.ID, &AddRuleRequest{
		PointKind:      entity.PointKindTreatment,
		ParameterGroup: entity.ParamGroupPhysical,
		Frequency:      entity.FrequencyDaily,
	})

	if _, err := svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID); err != nil {
		t.Fatalf("First activation failed: %v", err)
	}
	_, err := svc.Plan.ActivatePlan(ctx, testutil.TestTenant, plan.ID)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError on re-activation, got %v", err)
	}
}

func TestPlanTenantIsolation(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	plan, _ := svc.Plan.CreatePlan(ctx, testutil.TestTenant, testOperator, &CreatePlanRequest{
		Name:        "Tenant A Plan",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	_, err := svc.Plan.Get(ctx, "tenant-other", plan.ID)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFoundError across tenants, got %v", err)
	}
}
