package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/okil-ai/consult-api/api/swagger"
	"github.com/okil-ai/consult-api/internal/handler"
	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/repository"
	"github.com/okil-ai/consult-api/internal/service"
	"github.com/okil-ai/consult-api/migrations"
	"github.com/okil-ai/consult-api/pkg/cache"
	"github.com/okil-ai/consult-api/pkg/config"
	"github.com/okil-ai/consult-api/pkg/database"
	"github.com/okil-ai/consult-api/pkg/logger"
	"github.com/okil-ai/consult-api/pkg/mailer"
	corsmiddleware "github.com/okil-ai/consult-api/pkg/middleware/cors"
	reqidmiddleware "github.com/okil-ai/consult-api/pkg/middleware/requestid"
	"github.com/okil-ai/consult-api/pkg/storage"
)

// @title OKIL Consultation API
// @version 1.0.0
// @description Lawyer availability, appointment booking and legal queries.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, migrations.FS, cfg.Database.MigrationsPath, logr)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, availability cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewAvailabilityRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	queryRepo := repository.NewQueryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Booking.AvailabilityTTL, logr, cfg.Booking.CacheAvailability && redisClient != nil)

	notifications := service.NewNotificationService(userRepo, mailer.New(cfg.Notifications, logr), metrics, logr, cfg.Notifications)
	notifications.Start(ctx)
	defer notifications.Stop()

	userSvc := service.NewUserService(userRepo, logr)
	availabilitySvc := service.NewAvailabilityService(slotRepo, userRepo, cacheSvc, auditRepo, metrics, validate, logr, service.AvailabilityConfig{
		SlotLength: cfg.Booking.SlotLength,
		CacheTTL:   cfg.Booking.AvailabilityTTL,
	})
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		RefreshTokenExpiry:  cfg.JWT.RefreshExpiration,
		Issuer:              cfg.JWT.Issuer,
		RequireVerification: cfg.Account.RequireVerification,
		VerificationTTL:     cfg.Account.VerificationTTL,
		PasswordResetTTL:    cfg.Account.PasswordResetTTL,
		FrontendURL:         cfg.Account.FrontendURL,
	},
		service.WithAuthEvents(notifications),
		service.WithAuthAvailability(availabilitySvc),
	)
	appointmentSvc := service.NewAppointmentService(apptRepo, slotRepo, userRepo, auditRepo, validate, logr,
		service.WithAppointmentEvents(notifications),
		service.WithAppointmentAvailability(availabilitySvc),
		service.WithAppointmentMetrics(metrics),
	)
	querySvc := service.NewQueryService(queryRepo, userRepo, notifications, auditRepo, metrics, validate, logr)

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return err
		}
		exportSvc := service.NewExportService(appointmentSvc, store, storage.NewDownloadSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL), auditRepo, validate, logr, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		})
		exportSvc.StartCleanup(ctx)
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	health := handler.NewHealthHandler(metrics.Handler(), checks)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.RouterConfig{
		Auth:         handler.NewAuthHandler(authSvc),
		Lawyers:      handler.NewLawyerHandler(userSvc, availabilitySvc),
		Appointments: handler.NewAppointmentHandler(appointmentSvc),
		Queries:      handler.NewQueryHandler(querySvc),
		Exports:      exportHandler,
		Tokens:       authSvc,
		Audit:        auditRepo,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("failed to shutdown server", zap.Error(err))
		}
	}()

	logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logr.Info("server stopped")
	return nil
}
