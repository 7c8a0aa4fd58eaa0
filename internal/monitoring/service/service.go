package service

import (
	"time"

	"github.com/aquatrack/waterlab/internal/config"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Clock injected time source so generation, custody and compliance
// logic stay testable without touching the wall clock.
type Clock func() time.Time

// Services monitoring service set
type Services struct {
	Catalog    *CatalogService
	Plan       *PlanService
	TaskGen    *TaskGenService
	Custody    *CustodyService
	Result     *ResultService
	QC         *QCService
	Compliance *ComplianceService
	Photo      *PhotoService
}

// NewServices wires the service set. rdb may be nil (summary caching
// disabled); MinIO is optional the same way.
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO unavailable, photo storage disabled", zap.Error(err))
			minioClient = nil
		}
	}

	clock := Clock(time.Now)

	qcSvc := NewQCService(repos.QcControl, repos.Sample, repos.Parameter, repos.Result, clock, logger)
	custodySvc := NewCustodyService(repos.Sample, db, clock, logger)

	return &Services{
		Catalog:    NewCatalogService(repos.Point, repos.Parameter),
		Plan:       NewPlanService(repos.Plan, clock, logger),
		TaskGen:    NewTaskGenService(repos.Plan, repos.Point, repos.Parameter, repos.Sample, db, clock, logger),
		Custody:    custodySvc,
		Result:     NewResultService(repos.Sample, repos.Parameter, repos.Result, qcSvc, custodySvc, db, clock, logger),
		QC:         qcSvc,
		Compliance: NewComplianceService(repos.Point, repos.Parameter, repos.Result, repos.Compliance, rdb, clock, logger),
		Photo:      NewPhotoService(repos.Sample, minioClient, cfg.MinIO.Bucket, clock),
	}
}
