package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/Sai-Yarlagadda/grading-14763/api/swagger"
	"github.com/Sai-Yarlagadda/grading-14763/internal/handler"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/internal/repository"
	"github.com/Sai-Yarlagadda/grading-14763/internal/router"
	"github.com/Sai-Yarlagadda/grading-14763/internal/service"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/cache"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/config"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/jobs"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/logger"
	corsmiddleware "github.com/Sai-Yarlagadda/grading-14763/pkg/middleware/cors"
	reqidmiddleware "github.com/Sai-Yarlagadda/grading-14763/pkg/middleware/requestid"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/storage"
)

// @title Grading API
// @version 0.1.0
// @description Submissions tracker: late penalties from repository history and round-robin TA assignment
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "addr", cache.Addr(cfg.Redis), "error", err)
	}

	readiness := map[string]handler.ReadinessCheck{}
	var jobStore repository.ReportJobStore
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		jobStore = repository.NewRedisReportJobStore(cacheRepo, cfg.Reports.SignedURLTTL*2)
		readiness["redis"] = cacheRepo.Ping
		logr.Sugar().Infow("report jobs persisted in redis", "addr", cache.Addr(cfg.Redis))
	} else {
		jobStore = repository.NewMemoryReportJobStore()
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "dir", cfg.Reports.StorageDir, "error", err)
	}
	readiness["storage"] = func(context.Context) error {
		_, statErr := os.Stat(cfg.Reports.StorageDir)
		return statErr
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	if !authSvc.Enabled() {
		logr.Warn("JWT_SECRET not set; API routes are unauthenticated")
	}

	roster := service.RosterFile(cfg.Grading.RosterPath)
	inspector := gitrepo.NewInspector(cfg.Git, logr)
	locator := service.NewSubmissionLocator(inspector, cfg.Grading.Location, metricsSvc, logr)
	assembler := service.NewReportAssembler(service.NewURLExtractor(logr), locator, metricsSvc, logr, cfg.Grading.Delimiter)
	archives := service.NewArchiveService(exportStorage, logr, service.ArchiveServiceConfig{
		MaxFileSize: cfg.Archives.MaxFileSizeBytes,
		TempRoot:    filepath.Join(os.TempDir(), "grading-submissions"),
	})
	exporter := service.NewExportService(
		exportStorage,
		storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr,
		nil,
	)

	worker := service.NewReportWorker(jobStore, archives, roster, assembler, exporter, metricsSvc, logr, service.ReportWorkerConfig{
		Graders:    cfg.Grading.Graders,
		Location:   cfg.Grading.Location,
		MaxRetries: cfg.Reports.WorkerRetries,
	})
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	reportSvc := service.NewReportService(jobStore, queue, archives, roster, exporter, validate, logr, service.ReportServiceConfig{
		Graders:         cfg.Grading.Graders,
		Location:        cfg.Grading.Location,
		DefaultFormat:   models.ReportFormat(cfg.Reports.DefaultFormat),
		DefaultDocType:  cfg.Grading.DocType,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	gradingSvc := service.NewGradingService(locator, cfg.Grading.Graders, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	router.Register(r, cfg, router.Dependencies{
		ReportHandler:  handler.NewReportHandler(reportSvc),
		GradingHandler: handler.NewGradingHandler(gradingSvc),
		MetricsHandler: handler.NewMetricsHandler(metricsSvc, readiness),
		AuthService:    authSvc,
		Metrics:        metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "graders", len(cfg.Grading.Graders))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
