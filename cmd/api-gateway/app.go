package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/handler"
	internalmiddleware "github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/middleware"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/repository"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/service"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/cache"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/config"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/database"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/jobs"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/logger"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/mailer"
	corsmiddleware "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/middleware/requestid"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/objectstore"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/token"
)

const localSinkPath = "/storage/local"

type application struct {
	router  *gin.Engine
	uploads *service.UploadRequestService
	db      *sqlx.DB
	redis   *redis.Client
	queue   *jobs.Queue
}

func newApplication(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app := &application{db: db}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.redis = client
	}

	codec, err := token.NewCodec(cfg.Uploads.TokenPepper)
	if err != nil {
		app.close()
		return nil, err
	}

	sinkURL := strings.TrimRight(cfg.ObjectStore.LocalPublicBaseURL, "/") + cfg.APIPrefix + localSinkPath
	store, err := objectstore.New(cfg.ObjectStore, sinkURL)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("init object store: %w", err)
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	requestRepo := repository.NewUploadRequestRepository(db)
	fileRepo := repository.NewUploadFileRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	auditSvc := service.NewAuditService(auditRepo, metricsSvc, logr)
	quota := service.NewQuotaEnforcer(cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)

	var notifier *service.NotificationService
	if cfg.Notifications.Enabled {
		sender, err := mailer.NewSMTPMailer(cfg.Notifications)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		worker := service.NewPortalLinkWorker(sender, metricsSvc, logr)
		app.queue = jobs.NewQueue("portal-links", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			DeadLetter: worker.DeadLetter,
			Logger:     logr,
		})
		app.queue.Start(ctx)
		notifier = service.NewNotificationService(app.queue, logr)
	}

	deps := service.UploadRequestDeps{
		Requests:  requestRepo,
		Files:     fileRepo,
		Directory: directoryRepo,
		Trail:     auditRepo,
		Codec:     codec,
		Quota:     quota,
		Audit:     auditSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	app.uploads = service.NewUploadRequestService(deps, service.UploadRequestServiceConfig{
		DefaultTTL:           cfg.Uploads.DefaultTTL,
		MaxTTL:               cfg.Uploads.MaxTTL,
		DefaultMaxFiles:      cfg.Uploads.DefaultMaxFiles,
		DefaultMaxTotalBytes: cfg.Uploads.DefaultMaxTotalBytes,
		DefaultDocTypes:      cfg.Uploads.DefaultDocTypes,
		PortalBaseURL:        cfg.Uploads.PortalBaseURL,
	})
	broker := service.NewUploadBrokerService(app.uploads, fileRepo, store, quota, auditSvc, metricsSvc, validate, cfg.Uploads.SignedURLTTL, logr)
	finalizer := service.NewFinalizerService(app.uploads, fileRepo, documentRepo, store, auditSvc, metricsSvc, validate, logr)
	staffAuth := service.NewStaffAuthService(service.StaffAuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	checks := map[string]handler.ReadinessCheck{"postgres": directoryRepo}
	var attempts *repository.AttemptRepository
	if app.redis != nil {
		attempts = repository.NewAttemptRepository(app.redis)
		checks["redis"] = attempts
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	requestHandler := handler.NewUploadRequestHandler(app.uploads)
	staff := api.Group("/upload-requests")
	staff.Use(internalmiddleware.JWT(staffAuth))
	{
		readers := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff, models.RoleViewer)
		writers := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff)
		staff.POST("", writers, requestHandler.Create)
		staff.GET("", readers, requestHandler.List)
		staff.GET("/:id/details", readers, requestHandler.Details)
		staff.POST("/:id/revoke", writers, requestHandler.Revoke)
	}

	vendorHandler := handler.NewVendorUploadHandler(app.uploads, broker, finalizer)
	public := api.Group("/upload-requests")
	if cfg.RateLimit.Enabled {
		if attempts == nil {
			logr.Warn("upload rate limit enabled without redis; limiter disabled")
		} else {
			public.Use(internalmiddleware.FailedAttemptLimiter(attempts, cfg.RateLimit.MaxFailures, cfg.RateLimit.Window, logr))
		}
	}
	{
		public.GET("/:id/status", vendorHandler.Status)
		public.POST("/:id/files", vendorHandler.CreateFile)
		public.POST("/:id/files/:fileId/finalize", vendorHandler.Finalize)
		public.POST("/:id/complete", vendorHandler.Complete)
	}

	if local, ok := store.(*objectstore.LocalStore); ok {
		api.PUT(localSinkPath+"/*key", handler.NewLocalStorageHandler(local, logr).Put)
		logr.Warn("local object store active; not for production use", zap.String("sink", sinkURL))
	}

	app.router = r
	return app, nil
}

func (a *application) close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
