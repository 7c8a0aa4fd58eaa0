package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquatrack/waterlab/internal/config"
	"github.com/aquatrack/waterlab/internal/middleware"
	"github.com/aquatrack/waterlab/internal/monitoring/entity"
	"github.com/aquatrack/waterlab/internal/monitoring/handler"
	"github.com/aquatrack/waterlab/internal/monitoring/repository"
	"github.com/aquatrack/waterlab/internal/monitoring/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting waterlab service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.SamplingPoint{},
		&entity.Parameter{},
		&entity.Plan{},
		&entity.PlanRule{},
		&entity.Sample{},
		&entity.SampleParam{},
		&entity.CustodyEvent{},
		&entity.Result{},
		&entity.QcControl{},
		&entity.Compliance{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	rdb := initRedis(cfg.Redis)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// Catalog
		points := authorized.Group("/sampling-points")
		{
			points.GET("", h.Catalog.ListPoints)
			points.POST("", h.Catalog.CreatePoint)
			points.POST("/:id/deactivate", h.Catalog.DeactivatePoint)
		}
		parameters := authorized.Group("/parameters")
		{
			parameters.GET("", h.Catalog.ListParameters)
			parameters.POST("", h.Catalog.CreateParameter)
			parameters.POST("/:id/deactivate", h.Catalog.DeactivateParameter)
		}

		// Monitoring plans
		plans := authorized.Group("/plans")
		{
			plans.GET("", h.Plan.List)
			plans.POST("", h.Plan.Create)
			plans.GET("/:id", h.Plan.Get)
			plans.POST("/:id/rules", h.Plan.AddRule)
			plans.POST("/:id/activate", h.Plan.Activate)
			plans.POST("/:id/generate-tasks", h.Plan.GenerateTasks)
		}

		// Samples and custody
		samples := authorized.Group("/samples")
		{
			samples.GET("", h.Sample.List)
			samples.POST("", h.Sample.CreateAdhoc)
			samples.GET("/:id", h.Sample.Get)
			samples.POST("/:id/collect", h.Sample.Collect)
			samples.POST("/:id/receive", h.Sample.Receive)
			samples.POST("/:id/reject", h.Sample.Reject)
			samples.POST("/:id/photos", h.Sample.UploadPhoto)
			samples.GET("/:id/photos/url", h.Sample.PhotoURL)
			samples.GET("/:id/qc-controls", h.QC.ListBySample)
		}

		authorized.GET("/barcodes/:barcode", h.Sample.GetByBarcode)

		// Results
		results := authorized.Group("/results")
		{
			results.POST("", h.Result.Create)
			results.POST("/import", h.Result.ImportCSV)
			results.GET("/:id", h.Result.Get)
			results.POST("/:id/reflag", h.QC.Reflag)
		}

		// QC controls
		qc := authorized.Group("/qc-controls")
		{
			qc.GET("", h.QC.List)
			qc.POST("", h.QC.Create)
			qc.POST("/:id/evaluate", h.QC.Evaluate)
		}

		// Compliance
		compliance := authorized.Group("/compliance")
		{
			compliance.GET("", h.Compliance.List)
			compliance.GET("/summary", h.Compliance.Summary)
			compliance.GET("/export", h.Compliance.Export)
			compliance.POST("/compute", h.Compliance.Compute)
			compliance.POST("/compute-all", h.Compliance.ComputeAll)
		}
	}
}
