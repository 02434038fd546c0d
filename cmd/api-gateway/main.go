package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	_ "github.com/bakurah/investors-portal-api/api/swagger"
	"github.com/bakurah/investors-portal-api/internal/repository"
	"github.com/bakurah/investors-portal-api/internal/router"
	"github.com/bakurah/investors-portal-api/internal/service"
	"github.com/bakurah/investors-portal-api/pkg/cache"
	"github.com/bakurah/investors-portal-api/pkg/config"
	"github.com/bakurah/investors-portal-api/pkg/database"
	"github.com/bakurah/investors-portal-api/pkg/logger"
	"github.com/bakurah/investors-portal-api/pkg/mailer"
	"github.com/bakurah/investors-portal-api/pkg/storage"
)

// @title Bakurah Investors Portal API
// @version 1.0.0
// @description Investor dashboard, request workflow and back-office API
// @BasePath /api/v1
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	chatRepo := repository.NewChatRepository(db)
	signupRepo := repository.NewSignupRepository(db)
	contentRepo := repository.NewContentRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	attachmentFiles, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	reportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	attachmentSigner := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)
	reportSigner := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Reports.ResultTTL)

	smtp := mailer.NewSMTP(cfg.SMTP)
	validate := validator.New()

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, smtp, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "bakurah-portal",
		PortalURL:          cfg.PortalURL,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, smtp, logr, service.NotificationServiceConfig{
		Workers:    cfg.Notifications.Workers,
		RetryDelay: cfg.Notifications.RetryDelay,
		StaleAfter: cfg.Notifications.StaleAfter,
		PortalURL:  cfg.PortalURL,
	})
	notificationSvc.SetMetrics(metricsSvc)

	requestSvc := service.NewRequestService(requestRepo, userRepo, notificationSvc, logr,
		cfg.Notifications.MaxAttempts, cfg.Notifications.AdminEmail, cfg.PortalURL)
	requestSvc.SetMetrics(metricsSvc)

	attachmentSvc := service.NewAttachmentService(requestRepo, attachmentFiles, attachmentSigner, logr, service.AttachmentConfig{
		MaxFileSizeBytes: cfg.Attachments.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Attachments.AllowedMIMEs,
	})

	var dashboardSvc *service.DashboardService
	if cacheRepo != nil {
		dashboardSvc = service.NewDashboardService(dashboardRepo, notificationRepo, signupRepo,
			cacheRepo, cfg.Dashboard.CacheTTL, logr)
	} else {
		dashboardSvc = service.NewDashboardService(dashboardRepo, notificationRepo, signupRepo,
			nil, cfg.Dashboard.CacheTTL, logr)
	}

	chatSvc := service.NewChatService(chatRepo, logr)
	signupSvc := service.NewSignupService(signupRepo, userRepo, smtp, validate, logr,
		cfg.Notifications.AdminEmail, cfg.PortalURL)
	contentSvc := service.NewContentService(contentRepo, userRepo, validate, logr)
	reportSvc := service.NewReportService(requestRepo, reportFiles, reportSigner, service.ReportConfig{
		ResultTTL: cfg.Reports.ResultTTL,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	scheduler := cron.New()
	scheduler.Schedule(cron.Every(cfg.Notifications.SweepInterval), cron.FuncJob(func() {
		if err := notificationSvc.Sweep(ctx); err != nil {
			logr.Sugar().Errorw("notification sweep failed", "error", err)
		}
	}))
	scheduler.Schedule(cron.Every(cfg.Reports.CleanupInterval), cron.FuncJob(func() {
		if err := reportSvc.Cleanup(); err != nil {
			logr.Sugar().Errorw("report cleanup failed", "error", err)
		}
	}))
	scheduler.Start()
	defer scheduler.Stop()

	engine := router.New(router.Dependencies{
		Config:              cfg,
		Logger:              logr,
		Users:               userRepo,
		AuthService:         authSvc,
		UserService:         userSvc,
		RequestService:      requestSvc,
		AttachmentService:   attachmentSvc,
		NotificationService: notificationSvc,
		DashboardService:    dashboardSvc,
		ChatService:         chatSvc,
		SignupService:       signupSvc,
		ContentService:      contentSvc,
		ReportService:       reportSvc,
		MetricsService:      metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
