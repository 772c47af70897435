package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/examsphere/exam-portal-api/api/swagger"
	"github.com/examsphere/exam-portal-api/internal/handler"
	"github.com/examsphere/exam-portal-api/internal/models"
	"github.com/examsphere/exam-portal-api/internal/repository"
	"github.com/examsphere/exam-portal-api/internal/service"
	"github.com/examsphere/exam-portal-api/pkg/cache"
	"github.com/examsphere/exam-portal-api/pkg/config"
	"github.com/examsphere/exam-portal-api/pkg/database"
	"github.com/examsphere/exam-portal-api/pkg/export"
	"github.com/examsphere/exam-portal-api/pkg/jobs"
	"github.com/examsphere/exam-portal-api/pkg/logger"
	"github.com/examsphere/exam-portal-api/pkg/metrics"
	"github.com/examsphere/exam-portal-api/pkg/payment"
	"github.com/examsphere/exam-portal-api/pkg/storage"
)

// @title Exam Portal API
// @version 0.1.0
// @description Multi-tenant online examination platform with subscription-gated exam access
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	store, err := storage.NewLocalStore(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err, "dir", cfg.Storage.BaseDir)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	gateway := payment.NewGateway(payment.Config{
		BaseURL:   cfg.Payment.BaseURL,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		Currency:  cfg.Payment.Currency,
		Timeout:   cfg.Payment.Timeout,
	})
	m := metrics.New()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	planRepo := repository.NewPlanRepository(db)
	batchAssignmentRepo := repository.NewBatchAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	examAssignmentRepo := repository.NewExamAssignmentRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	exporter := export.NewXLSXTemplateExporter()
	renderer := export.NewCertificateRenderer()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "exam-portal-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	collegeService := service.NewCollegeService(collegeRepo, validate, logr)
	taxonomyService := service.NewTaxonomyService(taxonomyRepo, validate, logr)
	batchService := service.NewBatchService(batchRepo, taxonomyRepo, validate, logr)
	planService := service.NewPlanService(planRepo, cacheRepo, cfg.Catalog.CacheTTL, validate, logr)
	batchAssignmentService := service.NewBatchAssignmentService(batchAssignmentRepo, batchRepo, planRepo, userRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, userRepo, collegeRepo, batchRepo, exporter, store, validate, logr)
	examService := service.NewExamService(examRepo, questionRepo, taxonomyRepo, validate, logr)
	examAssignmentService := service.NewExamAssignmentService(examAssignmentRepo, examRepo, batchRepo, userRepo, validate, logr)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, planRepo, gateway, userRepo, validate, logr)
	entitlementService := service.NewEntitlementService(studentRepo, batchRepo, batchAssignmentRepo, planRepo, subscriptionRepo, examRepo, examAssignmentRepo, resultRepo, logr)
	attemptService := service.NewAttemptService(entitlementService, examRepo, questionRepo, resultRepo, validate, logr)
	resultService := service.NewResultService(resultRepo, export.NewCSVExporter())
	incidentService := service.NewIncidentService(incidentRepo, validate, logr)
	dashboardService := service.NewDashboardService(studentRepo, batchRepo, examRepo, examAssignmentRepo, resultRepo, entitlementService, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	templateService := service.NewTemplateService(exporter)

	// The queue and the certificate service reference each other: the queue
	// needs the render handler, the service needs the queue to enqueue. The
	// closure breaks the cycle.
	var certificateService *service.CertificateService
	certQueue := jobs.NewQueue("certificates", func(ctx context.Context, job jobs.Job) error {
		err := certificateService.RenderHandler(cfg.Certificate.WorkerRetries)(ctx, job)
		m.RecordCertificateRender(err == nil)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Certificate.WorkerConcurrency,
		MaxRetries: cfg.Certificate.WorkerRetries,
		Logger:     logr,
	})
	certificateService = service.NewCertificateService(certificateRepo, resultRepo, studentRepo, examRepo, collegeRepo, taxonomyRepo, renderer, store, signer, certQueue, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Certificate.Enabled {
		certQueue.Start(ctx)
		defer certQueue.Stop()
	}
	if cfg.Reconciler.Enabled {
		reconciler := service.NewReconcileService(subscriptionRepo, cfg.Reconciler.Interval, m, logr)
		go reconciler.Run(ctx)
	}

	if err := seedAdmin(ctx, userRepo, cfg.Bootstrap); err != nil {
		logr.Sugar().Fatalw("failed to seed platform admin", "error", err)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:        cfg,
		Logger:        logr,
		Metrics:       m,
		AuthService:   authService,
		Users:         userRepo,
		Auth:          handler.NewAuthHandler(authService),
		UserAdmin:     handler.NewUserHandler(userService),
		Colleges:      handler.NewCollegeHandler(collegeService),
		Taxonomy:      handler.NewTaxonomyHandler(taxonomyService),
		Batches:       handler.NewBatchHandler(batchService),
		Plans:         handler.NewPlanHandler(planService, studentService),
		Assignments:   handler.NewAssignmentHandler(batchAssignmentService, examAssignmentService),
		Students:      handler.NewStudentHandler(studentService, templateService),
		Exams:         handler.NewExamHandler(examService, dashboardService, studentService),
		Subscriptions: handler.NewSubscriptionHandler(subscriptionService, studentService),
		Entitlements:  handler.NewEntitlementHandler(entitlementService, studentService, m),
		Attempts:      handler.NewAttemptHandler(attemptService, studentService, m),
		Results:       handler.NewResultHandler(resultService),
		Incidents:     handler.NewIncidentHandler(incidentService, studentService),
		Dashboards:    handler.NewDashboardHandler(dashboardService),
		Certificates:  handler.NewCertificateHandler(certificateService, studentService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// seedAdmin creates the platform administrator on first boot so a fresh
// deployment is never locked out. Existing accounts are left alone.
func seedAdmin(ctx context.Context, users *repository.UserRepository, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return users.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		FullName:     "Platform Administrator",
		Role:         models.RoleSuperAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
