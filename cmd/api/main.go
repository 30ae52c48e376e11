package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Mrsuave-tt/ProjectPlatecv3/api/swagger"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/handler"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/middleware"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/repository"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/service"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/cache"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/config"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/database"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/logger"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/mailer"
	corsmiddleware "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/middleware/cors"
	reqidmiddleware "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/middleware/requestid"
)

// @title Attendance Management API
// @version 1.0.0
// @description School attendance tracking: student directory, daily marking and reporting.
// @BasePath /api
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	var credMailer mailer.CredentialsMailer
	if cfg.Email.SendgridAPIKey != "" {
		credMailer = mailer.NewSendgridMailer(cfg.Email)
	} else {
		logr.Warn("sendgrid not configured, credentials emails will be logged only")
		credMailer = mailer.NewLogMailer(logr)
	}

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	var reportCache *repository.CacheRepository
	if cfg.Reports.CacheEnabled && redisClient != nil {
		reportCache = cacheRepo
	}

	authSvc := service.NewAuthService(accountRepo, studentRepo, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, logr)
	studentSvc := service.NewStudentService(studentRepo, accountRepo, credMailer, cfg.App.LoginURL, logr)
	rosterSvc := newRosterService(studentRepo, attendanceRepo, reportCache, logr)
	reportSvc := newReportService(attendanceRepo, studentRepo, reportCache, cfg.Reports.CacheTTL, metricsSvc, logr)
	dashboardSvc := service.NewDashboardService(attendanceRepo, studentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(rosterSvc, dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/login", authHandler.Login)
		api.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)

		api.GET("/attendance/student/:studentId", attendanceHandler.StudentHistory)

		// Students may read their own directory record; everything else
		// on /students stays admin-only.
		api.GET("/students/:id", middleware.JWT(authSvc), middleware.RBAC(string(models.RoleAdmin), "SELF"), studentHandler.Get)

		admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/students", studentHandler.List)
			admin.POST("/students", studentHandler.Create)
			admin.PUT("/students/:id", studentHandler.Update)
			admin.DELETE("/students/:id", studentHandler.Delete)

			admin.GET("/attendance/roster", attendanceHandler.GetRoster)
			admin.POST("/attendance/roster", attendanceHandler.SubmitRoster)

			admin.GET("/reports/daily", reportHandler.Daily)
			admin.GET("/reports/range", reportHandler.Range)
			admin.GET("/reports/export", reportHandler.Export)

			admin.GET("/dashboard", dashboardHandler.Admin)
		}

		me := api.Group("/me", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleStudent))
		{
			me.GET("/dashboard", dashboardHandler.Me)
			me.GET("/attendance", dashboardHandler.MyAttendance)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newRosterService keeps the typed-nil cache interface out of the service
// when caching is disabled.
func newRosterService(students *repository.StudentRepository, ledger *repository.AttendanceRepository, cacheRepo *repository.CacheRepository, logr *zap.Logger) *service.RosterService {
	if cacheRepo == nil {
		return service.NewRosterService(students, ledger, nil, logr)
	}
	return service.NewRosterService(students, ledger, cacheRepo, logr)
}

func newReportService(ledger *repository.AttendanceRepository, students *repository.StudentRepository, cacheRepo *repository.CacheRepository, ttl time.Duration, metrics *service.MetricsService, logr *zap.Logger) *service.ReportService {
	if cacheRepo == nil {
		return service.NewReportService(ledger, students, nil, ttl, metrics, logr)
	}
	return service.NewReportService(ledger, students, cacheRepo, ttl, metrics, logr)
}
