package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/testutil"
)

func TestJudgeControlBlank(t *testing.T) {
	control := &entity.QcControl{Type: entity.ControlTypeBlank}
	if got := judgeControl(control, 0.05); got != entity.OutcomePass {
		t.Errorf("Blank at 0.05 should pass, got %s", got)
	}
	if got := judgeControl(control, 0.3); got != entity.OutcomeFail {
		t.Errorf("Blank at 0.3 should fail, got %s", got)
	}
}

func TestJudgeControlSample(t *testing.T) {
	control := &entity.QcControl{
		Type:          entity.ControlTypeControlSample,
		TargetValue:   floatPtr(100),
		AcceptedRange: "±10%",
	}
	if got := judgeControl(control, 105); got != entity.OutcomePass {
		t.Errorf("Within tolerance should pass, got %s", got)
	}
	if got := judgeControl(control, 113); got != entity.OutcomeWarn {
		t.Errorf("Within 1.5x tolerance should warn, got %s", got)
	}
	if got := judgeControl(control, 130); got != entity.OutcomeFail {
		t.Errorf("Beyond 1.5x tolerance should fail, got %s", got)
	}
}

func TestJudgeControlSpike(t *testing.T) {
	control := &entity.QcControl{
		Type:        entity.ControlTypeSpike,
		TargetValue: floatPtr(50),
	}
	// 95% recovery
	if got := judgeControl(control, 47.5); got != entity.OutcomePass {
		t.Errorf("95%% recovery should pass, got %s", got)
	}
	// 85% recovery
	if got := judgeControl(control, 42.5); got != entity.OutcomeWarn {
		t.Errorf("85%% recovery should warn, got %s", got)
	}
	// 60% recovery
	if got := judgeControl(control, 30); got != entity.OutcomeFail {
		t.Errorf("60%% recovery should fail, got %s", got)
	}
}

func TestParseToleranceFraction(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"±10%", 0.10},
		{"±5%", 0.05},
		{"+/-20%", 0.20},
		{"15%", 0.15},
		{"", 0.10},
		{"garbage", 0.10},
	}
	for _, tc := range cases {
		if got := parseToleranceFraction(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseToleranceFraction(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCalculateRPD(t *testing.T) {
	if got := CalculateRPD(10, 12); math.Abs(got-18.181818) > 0.001 {
		t.Errorf("RPD(10, 12) = %v, want ~18.18", got)
	}
	// Symmetric in its arguments.
	if CalculateRPD(10, 12) != CalculateRPD(12, 10) {
		t.Errorf("RPD must be symmetric")
	}
	if got := CalculateRPD(0, 0); got != 0 {
		t.Errorf("RPD with zero average must be 0, got %v", got)
	}
}

func TestApplyAutoFlags(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)

	param := &entity.Parameter{
		WHOLimit:    floatPtr(1.0),
		WasrebLimit: floatPtr(0.8),
		LocalLimit:  floatPtr(1.2),
	}

	// Exceeds WHO and Wasreb but not the local limit.
	result := &entity.Result{Value: floatPtr(1.1)}
	svc.QC.applyAutoFlags(result, param)
	want := map[string]bool{
		entity.FlagExceedsWHOLimit:    true,
		entity.FlagExceedsWasrebLimit: true,
	}
	if len(result.QCFlags) != 2 {
		t.Fatalf("Expected 2 flags, got %v", result.QCFlags)
	}
	for _, flag := range result.QCFlags {
		if !want[flag] {
			t.Errorf("Unexpected flag %s", flag)
		}
	}

	// Below the detection limit sets the flag and the < qualifier.
	result = &entity.Result{Value: floatPtr(0.001), LOD: floatPtr(0.005)}
	svc.QC.applyAutoFlags(result, param)
	if len(result.QCFlags) != 1 || result.QCFlags[0] != entity.FlagBelowLOD {
		t.Errorf("Expected below_lod only, got %v", result.QCFlags)
	}
	if result.ValueQualifier != entity.QualifierBelow {
		t.Errorf("Expected < qualifier, got %q", result.ValueQualifier)
	}

	// Relative uncertainty above 20%.
	result = &entity.Result{Value: floatPtr(0.5), Uncertainty: floatPtr(0.15)}
	svc.QC.applyAutoFlags(result, param)
	found := false
	for _, flag := range result.QCFlags {
		if flag == entity.FlagHighUncertainty {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected high_uncertainty flag, got %v", result.QCFlags)
	}

	// No value, no flags.
	result = &entity.Result{QCFlags: entity.StringArray{"stale"}}
	svc.QC.applyAutoFlags(result, param)
	if len(result.QCFlags) != 0 {
		t.Errorf("Expected flags cleared for nil value, got %v", result.QCFlags)
	}
}

func TestEvaluateControlPersistsOutcome(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	control, err := svc.QC.CreateControl(ctx, testutil.TestTenant, testOperator, &CreateControlRequest{
		Type:          entity.ControlTypeControlSample,
		TargetValue:   floatPtr(2.0),
		AcceptedRange: "±10%",
	})
	if err != nil {
		t.Fatalf("CreateControl failed: %v", err)
	}
	if control.Outcome != "" {
		t.Errorf("Outcome must be empty before evaluation, got %q", control.Outcome)
	}

	evaluated, err := svc.QC.EvaluateControl(ctx, testutil.TestTenant, control.ID, 2.1)
	if err != nil {
		t.Fatalf("EvaluateControl failed: %v", err)
	}
	if evaluated.Outcome != entity.OutcomePass {
		t.Errorf("Expected pass, got %s", evaluated.Outcome)
	}
	if evaluated.Details["measured_value"] != 2.1 {
		t.Errorf("Measured value not recorded in details: %v", evaluated.Details)
	}
}

func TestCreateControlRejectsUnknownType(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	_, _, svc := newTestServices(t, now)
	ctx := context.Background()

	_, err := svc.QC.CreateControl(ctx, testutil.TestTenant, testOperator, &CreateControlRequest{
		Type: "calibration",
	})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}
