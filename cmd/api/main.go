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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/uns-cex/matricula-api/api/swagger"
	"github.com/uns-cex/matricula-api/internal/handler"
	"github.com/uns-cex/matricula-api/internal/middleware"
	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/internal/repository"
	"github.com/uns-cex/matricula-api/internal/service"
	"github.com/uns-cex/matricula-api/pkg/cache"
	"github.com/uns-cex/matricula-api/pkg/config"
	"github.com/uns-cex/matricula-api/pkg/database"
	"github.com/uns-cex/matricula-api/pkg/export"
	"github.com/uns-cex/matricula-api/pkg/jobs"
	"github.com/uns-cex/matricula-api/pkg/logger"
	"github.com/uns-cex/matricula-api/pkg/mailer"
	corsmiddleware "github.com/uns-cex/matricula-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uns-cex/matricula-api/pkg/middleware/requestid"
	"github.com/uns-cex/matricula-api/pkg/whatsapp"
)

// @title Matrícula API
// @version 1.0.0
// @description Seat allocation and enrollment workflow service for Colegio Experimental UNS
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it the vacancy listing reads straight
	// from the database.
	var cacheRepo *repository.CacheRepository
	if cfg.Vacancies.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, vacancy cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	var emailSender service.EmailSender
	if cfg.SMTP.Configured() {
		emailSender = mailer.NewSMTPSender(cfg.SMTP)
	} else {
		logr.Info("smtp not configured, email channel disabled")
	}

	var textSender service.TextSender
	if cfg.WhatsApp.Enabled {
		client, err := whatsapp.Connect(cfg.WhatsApp)
		if err != nil {
			logr.Sugar().Warnw("whatsapp unavailable, channel disabled", "error", err)
		} else {
			textSender = whatsapp.NewSender(client, cfg.WhatsApp.CountryCode)
			defer client.Disconnect()
		}
	}

	seatRepo := repository.NewSeatRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db, seatRepo, studentRepo)
	notificationRepo := repository.NewNotificationRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Vacancies.CacheTTL, logr, cacheRepo != nil)
	fees := service.NewFeeSchedule(cfg.Fees)
	renderer := export.NewConstanciaRenderer(cfg.School)

	notificationSvc := service.NewNotificationService(emailSender, textSender, notificationRepo, metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	seatSvc := service.NewSeatService(seatRepo, cacheSvc, metricsSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, fees, renderer, notificationSvc, cacheSvc, metricsSvc, validate, logr)
	ratificationSvc := service.NewRatificationService(studentRepo, notificationSvc, cfg.Ratification.Concurrency, cfg.Ratification.PortalURL, logr)

	seatHandler := handler.NewSeatHandler(seatSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	ratificationHandler := handler.NewRatificationHandler(ratificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface used by the intake form.
	api.GET("/vacancies", seatHandler.List)
	api.POST("/enrollments", enrollmentHandler.Submit)

	staff := api.Group("")
	staff.Use(middleware.JWT(cfg.JWT.Secret))

	staff.PUT("/vacancies",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector),
		middleware.Audit(logr, "configure", "vacancies"),
		seatHandler.Configure)

	staff.GET("/enrollments", enrollmentHandler.List)
	staff.GET("/enrollments/:id", enrollmentHandler.Get)
	staff.POST("/enrollments/manual",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecretary),
		middleware.Audit(logr, "create", "enrollment"),
		enrollmentHandler.CreateManual)
	staff.PUT("/enrollments/:id/state",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecretary),
		middleware.Audit(logr, "transition", "enrollment"),
		enrollmentHandler.Transition)
	staff.GET("/enrollments/:id/certificate", enrollmentHandler.Certificate)

	staff.GET("/students", studentHandler.List)
	staff.GET("/students/:id", studentHandler.Get)
	staff.POST("/students",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecretary),
		middleware.Audit(logr, "create", "student"),
		studentHandler.Create)
	staff.PUT("/students/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecretary),
		middleware.Audit(logr, "update", "student"),
		studentHandler.Update)
	staff.DELETE("/students/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector),
		middleware.Audit(logr, "deactivate", "student"),
		studentHandler.Delete)

	staff.POST("/ratifications",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector),
		middleware.Audit(logr, "ratify-all", "ratification"),
		ratificationHandler.RatifyAll)
	staff.POST("/ratifications/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecretary),
		middleware.Audit(logr, "ratify-one", "ratification"),
		ratificationHandler.RatifyOne)

	staff.GET("/notifications", notificationHandler.List)
	staff.GET("/notifications/diagnostics",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector),
		notificationHandler.Diagnostics)

	staff.GET("/metrics/summary",
		middleware.RequireRoles(models.RoleAdmin, models.RoleDirector),
		metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
