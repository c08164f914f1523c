package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"rentdesk/internal/caching"
	"rentdesk/internal/handlers"
	"rentdesk/internal/jobs/background"
	"rentdesk/internal/middleware"
	"rentdesk/internal/pdf"
	"rentdesk/internal/repositories"
	"rentdesk/internal/services"
	"rentdesk/pkg/database"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}
	jwksURL := os.Getenv("ADMIN_JWKS_URL") // optional external identity provider

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin" // Default for development
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin" // Default for development
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	pdfBucket := os.Getenv("PDF_BUCKET")
	if pdfBucket == "" {
		pdfBucket = "applications"
	}

	// Agency identity used on PDFs and outgoing email
	agencyName := os.Getenv("AGENCY_NAME")
	if agencyName == "" {
		agencyName = "Rentdesk Lettings"
	}
	agencyEmail := os.Getenv("AGENCY_EMAIL")
	if agencyEmail == "" {
		agencyEmail = "lettings@rentdesk.example"
	}
	opsEmail := os.Getenv("OPS_EMAIL")

	// Storage
	storageSvc, err := services.NewMinioStorage(minioEndpoint, minioAccessKey, minioSecretKey, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	if err := storageSvc.EnsureBucketExists(context.Background(), pdfBucket); err != nil {
		log.Fatalf("Failed to ensure PDF bucket exists: %v", err)
	}

	// Mailer: SMTP when configured, log-only otherwise
	var mailer services.Mailer
	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		smtpPort := os.Getenv("SMTP_PORT")
		if smtpPort == "" {
			smtpPort = "587"
		}
		mailer = services.NewSMTPMailer(smtpHost, smtpPort,
			os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"), agencyEmail)
	} else {
		log.Printf("WARNING: SMTP_HOST not set, emails will be logged only")
		mailer = services.NewLogMailer()
	}

	// Create repositories
	appRepo := repositories.NewApplicationRepo(pool)
	activityRepo := repositories.NewActivityLogRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// PDF rendering worker pool
	pdfWorkers := 2
	if workersStr := os.Getenv("PDF_WORKERS"); workersStr != "" {
		if n, err := strconv.Atoi(workersStr); err == nil && n > 0 {
			pdfWorkers = n
		}
	}
	renderer := pdf.NewRenderer(agencyName, agencyEmail)
	pdfPool := pdf.NewPool(renderer, pdfWorkers)
	defer pdfPool.Stop()

	// Session TTL for in-progress form drafts
	sessionTTL := 24 * time.Hour
	if ttlStr := os.Getenv("SESSION_TTL_HOURS"); ttlStr != "" {
		if h, err := strconv.Atoi(ttlStr); err == nil && h > 0 {
			sessionTTL = time.Duration(h) * time.Hour
		}
	}

	// Create services
	activitySvc := services.NewActivityService(activityRepo)
	authSvc := services.NewAuthService(jwtSecret, time.Hour)
	sessionSvc := services.NewFormSessionService(cacheSvc, sessionTTL)
	submissionSvc := services.NewSubmissionService(appRepo, activitySvc, pdfPool, storageSvc,
		mailer, cacheSvc, services.SubmissionConfig{
			Bucket:      pdfBucket,
			OpsEmail:    opsEmail,
			AgencyName:  agencyName,
			AgencyEmail: agencyEmail,
		})
	applicationSvc := services.NewApplicationService(appRepo, activitySvc, storageSvc, cacheSvc, pdfBucket)

	// Token verification (HMAC secret, plus JWKS when configured)
	verifier, err := middleware.NewTokenVerifier(jwtSecret, jwksURL)
	if err != nil {
		log.Fatalf("Failed to initialize token verifier: %v", err)
	}

	// Background jobs
	scheduler := background.NewJobScheduler(sessionSvc, appRepo, mailer, cacheSvc, opsEmail)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop job scheduler: %v", err)
		}
	}()

	// Create handlers
	formHandlers := handlers.NewFormHandlers(sessionSvc, submissionSvc, cacheSvc)
	adminHandlers := handlers.NewAdminHandlers(applicationSvc, activitySvc)
	authHandlers := handlers.NewAuthHandlers(authSvc, userRepo)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, sessionSvc, scheduler)

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Version middleware
	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)

	// API routes
	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))

	// Public form routes (no auth; applicants are anonymous)
	sessions := v1.Group("/applications/sessions")
	sessions.POST("", formHandlers.CreateSession)
	sessions.GET("/:token", formHandlers.GetSession)
	sessions.PATCH("/:token/property", formHandlers.UpdateProperty)
	sessions.PATCH("/:token/applicants/:id", formHandlers.UpdateApplicant)
	sessions.PATCH("/:token/details", formHandlers.UpdateDetails)
	sessions.POST("/:token/applicants", formHandlers.AddApplicant)
	sessions.DELETE("/:token/applicants/:id", formHandlers.RemoveApplicant)
	sessions.PUT("/:token/applicants/count", formHandlers.SetApplicantCount)
	sessions.POST("/:token/next", formHandlers.Next)
	sessions.POST("/:token/previous", formHandlers.Previous)
	sessions.POST("/:token/guarantor/open", formHandlers.GuarantorOpen)
	sessions.POST("/:token/guarantor/save", formHandlers.GuarantorSave)
	sessions.POST("/:token/submit", formHandlers.Submit)

	// Authentication routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login)

	// Protected dashboard routes
	protected := v1.Group("")
	protected.Use(echojwt.WithConfig(middleware.EchoJWTConfig(verifier)))

	activityMiddleware := middleware.NewActivityMiddleware(activitySvc)
	protected.Use(activityMiddleware.RecordRequests())

	protected.GET("/me", authHandlers.Me)

	protected.GET("/admin/applications", adminHandlers.ListApplications)
	protected.GET("/admin/applications/:id", adminHandlers.GetApplication)
	protected.GET("/admin/applications/:id/pdf", adminHandlers.GetApplicationPDF)
	protected.POST("/admin/applications/export", adminHandlers.ExportApplications)
	protected.DELETE("/admin/applications/:id", adminHandlers.DeleteApplication)
	protected.GET("/admin/activity", adminHandlers.ListActivity)

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Rentdesk server v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
