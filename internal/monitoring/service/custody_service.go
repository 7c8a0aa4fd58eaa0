package service

import (
	"context"
	"errors"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustodyService drives a sample through its chain-of-custody
// lifecycle. Every transition is validated against the forward-only
// state order and appended to the custody event log; transitions for
// one sample are serialized by running inside a transaction.
type CustodyService struct {
	sampleRepo *repository.SampleRepository
	db         *gorm.DB
	now        Clock
	logger     *zap.Logger
}

func NewCustodyService(sampleRepo *repository.SampleRepository, db *gorm.DB, now Clock, logger *zap.Logger) *CustodyService {
	return &CustodyService{sampleRepo: sampleRepo, db: db, now: now, logger: logger}
}

// CollectRequest field collection details
type CollectRequest struct {
	CollectedAt *time.Time `json:"collected_at"`
	Photos      []string   `json:"photos"`
	Notes       string     `json:"notes"`
}

// Collect moves scheduled -> collected and records who took the
// sample, when, and any field photos. The operator-reported collection
// time may lag the clock but never lead it, so the chain stays
// monotonic through lab receipt.
func (s *CustodyService) Collect(ctx context.Context, tenantID, sampleID, operatorID string, req *CollectRequest) (*entity.Sample, error) {
	var sample *entity.Sample
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		sample, txErr = s.loadForTransition(ctx, tx, tenantID, sampleID)
		if txErr != nil {
			return txErr
		}
		if !entity.CanTransition(sample.CustodyState, entity.CustodyStateCollected) {
			return &InvalidStateError{Entity: "sample", Current: sample.CustodyState, Attempted: "collect"}
		}

		collectedAt := s.now()
		if req.CollectedAt != nil {
			if req.CollectedAt.After(s.now()) {
				return invalidField("collected_at", "cannot be in the future")
			}
			collectedAt = *req.CollectedAt
		}

		sample.CustodyState = entity.CustodyStateCollected
		sample.CollectedAt = &collectedAt
		sample.CollectedBy = operatorID
		if len(req.Photos) > 0 {
			sample.Photos = append(sample.Photos, req.Photos...)
		}
		if err := tx.Save(sample).Error; err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, sample.ID, entity.CustodyStateCollected, collectedAt, operatorID, req.Notes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sample collected",
		zap.String("sample_id", sample.ID),
		zap.String("barcode", sample.Barcode),
		zap.String("collected_by", operatorID),
	)
	return sample, nil
}

// ReceiveLabRequest lab intake details
type ReceiveLabRequest struct {
	TempCOnReceipt *float64 `json:"temp_c_on_receipt"`
	Notes          string   `json:"notes"`
}

// ReceiveInLab moves collected -> received_lab, records the receipt
// temperature and flips every pending sample param to in_analysis.
func (s *CustodyService) ReceiveInLab(ctx context.Context, tenantID, sampleID, operatorID string, req *ReceiveLabRequest) (*entity.Sample, error) {
	var sample *entity.Sample
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		sample, txErr = s.loadForTransition(ctx, tx, tenantID, sampleID)
		if txErr != nil {
			return txErr
		}
		if !entity.CanTransition(sample.CustodyState, entity.CustodyStateReceivedLab) {
			return &InvalidStateError{Entity: "sample", Current: sample.CustodyState, Attempted: "receive_in_lab"}
		}

		receivedAt := s.now()
		sample.CustodyState = entity.CustodyStateReceivedLab
		sample.TempCOnReceipt = req.TempCOnReceipt
		if err := tx.Save(sample).Error; err != nil {
			return err
		}

		if err := tx.Model(&entity.SampleParam{}).
			Where("sample_id = ? AND status = ?", sample.ID, entity.SampleParamStatusPending).
			Update("status", entity.SampleParamStatusInAnalysis).Error; err != nil {
			return err
		}

		return s.appendEvent(ctx, tx, sample.ID, entity.CustodyStateReceivedLab, receivedAt, operatorID, req.Notes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sample received in lab",
		zap.String("sample_id", sample.ID),
		zap.String("barcode", sample.Barcode),
	)
	return sample, nil
}

// Reject terminates a sample from any non-terminal state (broken
// bottle, holding time exceeded, temperature excursion).
func (s *CustodyService) Reject(ctx context.Context, tenantID, sampleID, operatorID, reason string) (*entity.Sample, error) {
	if reason == "" {
		return nil, invalidField("reason", "required")
	}

	var sample *entity.Sample
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		sample, txErr = s.loadForTransition(ctx, tx, tenantID, sampleID)
		if txErr != nil {
			return txErr
		}
		if !entity.CanTransition(sample.CustodyState, entity.CustodyStateRejected) {
			return &InvalidStateError{Entity: "sample", Current: sample.CustodyState, Attempted: "reject"}
		}

		sample.CustodyState = entity.CustodyStateRejected
		sample.RejectReason = reason
		if err := tx.Save(sample).Error; err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, sample.ID, entity.CustodyStateRejected, s.now(), operatorID, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sample rejected",
		zap.String("sample_id", sample.ID),
		zap.String("reason", reason),
	)
	return sample, nil
}

// Get returns a sample with its params and full custody chain.
func (s *CustodyService) Get(ctx context.Context, tenantID, sampleID string) (*entity.Sample, error) {
	sample, err := s.sampleRepo.FindByID(ctx, tenantID, sampleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sample", sampleID)
		}
		return nil, err
	}
	chain, err := s.sampleRepo.Chain(ctx, sample.ID)
	if err != nil {
		return nil, err
	}
	sample.Chain = chain
	return sample, nil
}

// GetByBarcode resolves a scanned bottle to its sample, with params
// and chain, for field and bench lookups.
func (s *CustodyService) GetByBarcode(ctx context.Context, tenantID, barcode string) (*entity.Sample, error) {
	sample, err := s.sampleRepo.FindByBarcode(ctx, tenantID, barcode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("sample", barcode)
		}
		return nil, err
	}
	return s.Get(ctx, tenantID, sample.ID)
}

func (s *CustodyService) List(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Sample, int64, error) {
	return s.sampleRepo.List(ctx, tenantID, page, pageSize, filters)
}

// loadForTransition re-reads the sample on the transition's own
// transaction so concurrent actors observe each other's state changes.
func (s *CustodyService) loadForTransition(ctx context.Context, tx *gorm.DB, tenantID, sampleID string) (*entity.Sample, error) {
	var sample entity.Sample
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, sampleID).
		First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("sample", sampleID)
		}
		return nil, err
	}
	return &sample, nil
}

// appendEvent writes one custody event, enforcing monotonic chain
// timestamps at the write boundary.
func (s *CustodyService) appendEvent(ctx context.Context, tx *gorm.DB, sampleID, state string, timestamp time.Time, actorID, notes string) error {
	var last entity.CustodyEvent
	err := tx.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("timestamp DESC, created_at DESC").
		First(&last).Error
	if err == nil && timestamp.Before(last.Timestamp) {
		return invalidField("timestamp", "precedes the last custody event")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	event := &entity.CustodyEvent{
		ID:        uuid.New().String()[:32],
		SampleID:  sampleID,
		State:     state,
		Timestamp: timestamp,
		ActorID:   actorID,
		Notes:     notes,
	}
	return tx.Create(event).Error
}
