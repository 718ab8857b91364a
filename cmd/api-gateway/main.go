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

	_ "github.com/campuskit/attendance-api/api/swagger"
	"github.com/campuskit/attendance-api/internal/handler"
	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/repository"
	"github.com/campuskit/attendance-api/internal/service"
	"github.com/campuskit/attendance-api/pkg/cache"
	"github.com/campuskit/attendance-api/pkg/config"
	"github.com/campuskit/attendance-api/pkg/database"
	"github.com/campuskit/attendance-api/pkg/jobs"
	"github.com/campuskit/attendance-api/pkg/logger"
	"github.com/campuskit/attendance-api/pkg/mailer"
	corsmiddleware "github.com/campuskit/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/attendance-api/pkg/middleware/requestid"
)

// @title Digital Attendance API
// @version 1.0.0
// @description Geolocation-gated classroom attendance backend
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	requestRepo := repository.NewRequestRepository(redisClient)
	otpRepo := repository.NewOTPRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient)

	var mail mailer.Mailer
	if cfg.Mail.Provider == "sendgrid" && cfg.Mail.SendGridKey != "" {
		mail = mailer.NewSendGrid(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	} else {
		mail = mailer.NewConsole(logr)
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "attendance-api",
	}, validate, logr)
	otpSvc := service.NewOTPService(otpRepo, userRepo, mail, service.OTPConfig{
		TTL:          cfg.OTP.TTL,
		FirstTimeTTL: cfg.OTP.FirstTimeTTL,
	}, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, subjectRepo, attendanceRepo, cfg.Session.TTL, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, userRepo, attendanceRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(requestRepo, subjectRepo, userRepo, attendanceRepo, validate, logr)
	collaborationSvc := service.NewCollaborationService(requestRepo, subjectRepo, userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, subjectRepo, userRepo, validate, logr)
	reportSvc := service.NewReportService(subjectRepo, userRepo, attendanceRepo, mail, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: cfg.Reports.RetryDelay,
		Logger:     logr,
	}, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reportSvc.Start(rootCtx)
	defer reportSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	otpHandler := handler.NewOTPHandler(otpSvc)
	userHandler := handler.NewUserHandler(userSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, collaborationSvc)
	collaborationHandler := handler.NewCollaborationHandler(collaborationSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public routes.
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.Refresh)
	r.POST("/logout", authHandler.Logout)
	r.POST("/send-otp", otpHandler.Send)
	r.POST("/send-otp-first-time", otpHandler.Send)
	r.POST("/verify-otp", otpHandler.Verify)
	r.POST("/reset-password", otpHandler.ResetPassword)
	r.GET("/user/:email", userHandler.Get)
	r.PUT("/user/:email", userHandler.Update)

	// Faculty routes.
	faculty := r.Group("/faculty", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleFaculty))
	{
		faculty.POST("/add-subject", subjectHandler.Create)
		faculty.POST("/archive-subject", subjectHandler.Archive)
		faculty.POST("/unarchive-subject", subjectHandler.Unarchive)
		faculty.DELETE("/delete-subject/:subjectID", subjectHandler.Delete)
		faculty.GET("/subject/:subjectID", subjectHandler.Detail)
		faculty.GET("/dashboard/:email", subjectHandler.FacultyDashboard)
		faculty.GET("/get-archived-subjects/:email", subjectHandler.Archived)
		faculty.POST("/remove-student", subjectHandler.RemoveStudent)

		faculty.POST("/start-attendance", sessionHandler.Start)
		faculty.POST("/update-location", sessionHandler.UpdateLocation)
		faculty.POST("/stop-attendance", sessionHandler.Stop)

		faculty.GET("/attendanceRecord/:subjectID", attendanceHandler.History)
		faculty.GET("/get-attendance/:subjectID/:date", attendanceHandler.ByDate)
		faculty.POST("/update-attendance", attendanceHandler.Update)
		faculty.DELETE("/delete-attendance", attendanceHandler.Delete)

		faculty.GET("/new-requests", enrollmentHandler.NewRequests)
		faculty.GET("/enrollment-requests", enrollmentHandler.PendingForFaculty)
		faculty.GET("/enrollment-requests/:subjectID", enrollmentHandler.List)
		faculty.POST("/enroll-student", enrollmentHandler.Resolve)
		faculty.POST("/bulk-enroll", enrollmentHandler.BulkResolve)

		faculty.POST("/add-faculty", collaborationHandler.Invite)
		faculty.GET("/pending-requests", collaborationHandler.List)
		faculty.POST("/respond-request", collaborationHandler.Respond)

		faculty.POST("/email-attendance", reportHandler.Email)
	}

	// Student routes.
	student := r.Group("/student", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/faculty-location/:subjectID", sessionHandler.FacultyLocation)
		student.GET("/subjects", subjectHandler.Catalog)
		student.GET("/dashboard/:email", subjectHandler.StudentDashboard)
		student.POST("/enroll", enrollmentHandler.Request)
		student.POST("/pending-enrollments", enrollmentHandler.PendingForStudent)
		student.POST("/unenroll", subjectHandler.Unenroll)
		student.POST("/mark-attendance", attendanceHandler.Mark)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
