package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ErrPhotoStorageDisabled returned when no object store is configured.
var ErrPhotoStorageDisabled = errors.New("photo storage is not configured")

// PhotoService stores sample photos in MinIO and records their object
// paths on the sample.
type PhotoService struct {
	sampleRepo  *repository.SampleRepository
	minioClient *minio.Client
	bucket      string
	now         Clock
}

func NewPhotoService(sampleRepo *repository.SampleRepository, minioClient *minio.Client, bucket string, now Clock) *PhotoService {
	return &PhotoService{
		sampleRepo:  sampleRepo,
		minioClient: minioClient,
		bucket:      bucket,
		now:         now,
	}
}

// Upload stores one photo and appends its object path to the sample.
// Returns the stored object path.
func (s *PhotoService) Upload(ctx context.Context, tenantID, sampleID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if s.minioClient == nil {
		return "", ErrPhotoStorageDisabled
	}

	sample, err := s.sampleRepo.FindByID(ctx, tenantID, sampleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", notFound("sample", sampleID)
		}
		return "", err
	}

	objectName := fmt.Sprintf("samples/%s/%s%s",
		sample.ID, uuid.New().String()[:16], filepath.Ext(filename))
	_, err = s.minioClient.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}

	sample.Photos = append(sample.Photos, objectName)
	if err := s.sampleRepo.Update(ctx, sample); err != nil {
		return "", err
	}
	return objectName, nil
}

// PresignedURL a short-lived download link for one stored photo.
func (s *PhotoService) PresignedURL(ctx context.Context, tenantID, sampleID, objectName string) (string, error) {
	if s.minioClient == nil {
		return "", ErrPhotoStorageDisabled
	}

	sample, err := s.sampleRepo.FindByID(ctx, tenantID, sampleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", notFound("sample", sampleID)
		}
		return "", err
	}
	found := false
	for _, p := range sample.Photos {
		if p == objectName {
			found = true
			break
		}
	}
	if !found {
		return "", notFound("photo", objectName)
	}

	u, err := s.minioClient.PresignedGetObject(ctx, s.bucket, objectName, 15*time.Minute, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo: %w", err)
	}
	return u.String(), nil
}
