package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/testutil"
)

func TestCustodyHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-100", "TAP-10", entity.PointKindConsumerTap)
	seedSample(t, db, "sample-100", "point-100", "WQ20260302-AAAAAA", entity.CustodyStateScheduled)
	seedParameter(t, db, "param-100", "PH", entity.ParamGroupPhysical, "", nil)
	seedSampleParam(t, db, "sp-100", "sample-100", "param-100", entity.SampleParamStatusPending)

	collectedAt := now.Add(-time.Hour)
	sample, err := svc.Custody.Collect(ctx, testutil.TestTenant, "sample-100", testOperator, &CollectRequest{
		CollectedAt: &collectedAt,
		Photos:      []string{"field/photo-1.jpg"},
		Notes:       "Clear water, no odor",
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if sample.CustodyState != entity.CustodyStateCollected {
		t.Errorf("Expected collected, got %s", sample.CustodyState)
	}
	if sample.CollectedAt == nil || !sample.CollectedAt.Equal(collectedAt) {
		t.Errorf("CollectedAt not recorded")
	}
	if sample.CollectedBy != testOperator {
		t.Errorf("CollectedBy not recorded, got %q", sample.CollectedBy)
	}
	if len(sample.Photos) != 1 {
		t.Errorf("Expected 1 photo, got %d", len(sample.Photos))
	}

	temp := 4.5
	sample, err = svc.Custody.ReceiveInLab(ctx, testutil.TestTenant, "sample-100", testOperator, &ReceiveLabRequest{
		TempCOnReceipt: &temp,
	})
	if err != nil {
		t.Fatalf("ReceiveInLab failed: %v", err)
	}
	if sample.CustodyState != entity.CustodyStateReceivedLab {
		t.Errorf("Expected received_lab, got %s", sample.CustodyState)
	}
	if sample.TempCOnReceipt == nil || *sample.TempCOnReceipt != 4.5 {
		t.Errorf("Receipt temperature not recorded")
	}

	// Lab intake flips pending params to in_analysis.
	var sp entity.SampleParam
	db.First(&sp, "id = ?", "sp-100")
	if sp.Status != entity.SampleParamStatusInAnalysis {
		t.Errorf("Expected param in_analysis after intake, got %s", sp.Status)
	}

	// Chain holds one event per transition, oldest first.
	loaded, err := svc.Custody.Get(ctx, testutil.TestTenant, "sample-100")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(loaded.Chain) != 2 {
		t.Fatalf("Expected 2 custody events, got %d", len(loaded.Chain))
	}
	for i := 1; i < len(loaded.Chain); i++ {
		if loaded.Chain[i].Timestamp.Before(loaded.Chain[i-1].Timestamp) {
			t.Errorf("Custody chain timestamps not monotonic")
		}
	}
}

func TestCustodySkippingStatesRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-110", "TAP-11", entity.PointKindConsumerTap)
	seedSample(t, db, "sample-110", "point-110", "WQ20260302-BBBBBB", entity.CustodyStateScheduled)

	// scheduled -> received_lab skips collection.
	_, err := svc.Custody.ReceiveInLab(ctx, testutil.TestTenant, "sample-110", testOperator, &ReceiveLabRequest{})
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}

	// collected -> collected repeats a state.
	seedSample(t, db, "sample-111", "point-110", "WQ20260302-CCCCCC", entity.CustodyStateCollected)
	_, err = svc.Custody.Collect(ctx, testutil.TestTenant, "sample-111", testOperator, &CollectRequest{})
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError on repeat collect, got %v", err)
	}
}

func TestRejectFromAnyNonTerminalState(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-120", "SRC-12", entity.PointKindSource)

	states := []string{
		entity.CustodyStateScheduled,
		entity.CustodyStateCollected,
		entity.CustodyStateReceivedLab,
		entity.CustodyStateInAnalysis,
	}
	for i, state := range states {
		id := "sample-12" + string(rune('0'+i))
		seedSample(t, db, id, "point-120", "WQ20260302-REJ00"+string(rune('0'+i)), state)

		sample, err := svc.Custody.Reject(ctx, testutil.TestTenant, id, testOperator, "bottle broken in transit")
		if err != nil {
			t.Fatalf("Reject from %s failed: %v", state, err)
		}
		if sample.CustodyState != entity.CustodyStateRejected {
			t.Errorf("Expected rejected, got %s", sample.CustodyState)
		}
		if sample.RejectReason == "" {
			t.Errorf("Reject reason not recorded")
		}
	}
}

func TestRejectRequiresReason(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-130", "SRC-13", entity.PointKindSource)
	seedSample(t, db, "sample-130", "point-130", "WQ20260302-DDDDDD", entity.CustodyStateCollected)

	_, err := svc.Custody.Reject(ctx, testutil.TestTenant, "sample-130", testOperator, "")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for empty reason, got %v", err)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-140", "SRC-14", entity.PointKindSource)
	seedSample(t, db, "sample-140", "point-140", "WQ20260302-EEEEEE", entity.CustodyStateReported)
	seedSample(t, db, "sample-141", "point-140", "WQ20260302-FFFFFF", entity.CustodyStateRejected)

	var stateErr *InvalidStateError
	if _, err := svc.Custody.Reject(ctx, testutil.TestTenant, "sample-140", testOperator, "late"); !errors.As(err, &stateErr) {
		t.Errorf("Expected InvalidStateError rejecting a reported sample, got %v", err)
	}
	if _, err := svc.Custody.Reject(ctx, testutil.TestTenant, "sample-141", testOperator, "again"); !errors.As(err, &stateErr) {
		t.Errorf("Expected InvalidStateError rejecting a rejected sample, got %v", err)
	}
	if _, err := svc.Custody.Collect(ctx, testutil.TestTenant, "sample-141", testOperator, &CollectRequest{}); !errors.As(err, &stateErr) {
		t.Errorf("Expected InvalidStateError collecting a rejected sample, got %v", err)
	}
}

func TestCollectRejectsFutureTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-150", "SRC-15", entity.PointKindSource)
	seedSample(t, db, "sample-150", "point-150", "WQ20260302-GGGGGG", entity.CustodyStateScheduled)

	future := now.Add(time.Hour)
	_, err := svc.Custody.Collect(ctx, testutil.TestTenant, "sample-150", testOperator, &CollectRequest{
		CollectedAt: &future,
	})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for future collected_at, got %v", err)
	}
	if valErr.Field != "collected_at" {
		t.Errorf("Expected field collected_at, got %s", valErr.Field)
	}

	// The sample is untouched by the rejected attempt.
	var sample entity.Sample
	db.First(&sample, "id = ?", "sample-150")
	if sample.CustodyState != entity.CustodyStateScheduled {
		t.Errorf("Expected scheduled after rejection, got %s", sample.CustodyState)
	}

	// A collection reported at the clock itself passes, and receipt at
	// the same instant keeps the chain monotonic.
	at := now
	if _, err := svc.Custody.Collect(ctx, testutil.TestTenant, "sample-150", testOperator, &CollectRequest{
		CollectedAt: &at,
	}); err != nil {
		t.Fatalf("Collect at clock time failed: %v", err)
	}
	if _, err := svc.Custody.ReceiveInLab(ctx, testutil.TestTenant, "sample-150", testOperator, &ReceiveLabRequest{}); err != nil {
		t.Fatalf("ReceiveInLab failed: %v", err)
	}
}

func TestCustodyChainTimestampMonotonic(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-151", "SRC-16", entity.PointKindSource)
	seedSample(t, db, "sample-151", "point-151", "WQ20260302-HHHHHH", entity.CustodyStateScheduled)

	// A chain head already past the clock (clock skew between writers)
	// blocks any earlier-stamped event.
	head := &entity.CustodyEvent{
		ID:        "evt-151",
		SampleID:  "sample-151",
		State:     entity.CustodyStateScheduled,
		Timestamp: now.Add(2 * time.Hour),
		ActorID:   testOperator,
	}
	if err := db.Create(head).Error; err != nil {
		t.Fatalf("Failed to seed custody event: %v", err)
	}

	_, err := svc.Custody.Collect(ctx, testutil.TestTenant, "sample-151", testOperator, &CollectRequest{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for non-monotonic timestamp, got %v", err)
	}

	// The blocked transition rolled back entirely.
	var sample entity.Sample
	db.First(&sample, "id = ?", "sample-151")
	if sample.CustodyState != entity.CustodyStateScheduled {
		t.Errorf("Expected scheduled after rollback, got %s", sample.CustodyState)
	}
	var events int64
	db.Model(&entity.CustodyEvent{}).Where("sample_id = ?", "sample-151").Count(&events)
	if events != 1 {
		t.Errorf("Expected only the seeded event, got %d", events)
	}
}

func TestCustodyListFilters(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	db, _, svc := newTestServices(t, now)
	ctx := context.Background()

	seedPoint(t, db, "point-160", "SRC-16", entity.PointKindSource)
	seedPoint(t, db, "point-161", "SRC-17", entity.PointKindSource)
	seedSample(t, db, "sample-160", "point-160", "WQ20260302-IIIIII", entity.CustodyStateScheduled)
	seedSample(t, db, "sample-161", "point-160", "WQ20260302-JJJJJJ", entity.CustodyStateCollected)
	seedSample(t, db, "sample-162", "point-161", "WQ20260302-KKKKKK", entity.CustodyStateCollected)

	samples, total, err := svc.Custody.List(ctx, testutil.TestTenant, 1, 20, map[string]string{
		"custody_state": entity.CustodyStateCollected,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(samples) != 2 {
		t.Errorf("Expected 2 collected samples, got %d (total %d)", len(samples), total)
	}

	samples, total, err = svc.Custody.List(ctx, testutil.TestTenant, 1, 20, map[string]string{
		"custody_state":     entity.CustodyStateCollected,
		"sampling_point_id": "point-161",
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(samples) != 1 {
		t.Errorf("Expected 1 sample for the point filter, got %d (total %d)", len(samples), total)
	}
}
