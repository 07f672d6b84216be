// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/handlers"
	"github.com/javajoker/tastecert-backend/internal/metrics"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

// Version is reported by /health and the version command.
var Version = "1.0.0"

// Options overrides the collaborators Initialize builds by default.
type Options struct {
	Clock      clock.Clock
	Allocator  services.NumberAllocator
	Storage    *services.StorageService
	RateLimits *middleware.RateLimits
	Collector  *metrics.Collector
}

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	return New(db, cfg, Options{})
}

func New(db *gorm.DB, cfg *config.Config, opts Options) (*gin.Engine, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Allocator == nil {
		opts.Allocator = services.NewSequenceAllocator(cfg.Certification.NumberPrefix)
	}
	if opts.Storage == nil {
		storageService, err := services.NewStorageService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		opts.Storage = storageService
	}
	if opts.RateLimits == nil {
		limits := middleware.DefaultRateLimits()
		opts.RateLimits = &limits
	}
	if opts.Collector == nil {
		opts.Collector = metrics.NewCollector()
	}

	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	directoryService := services.NewDirectoryService(db)
	certificateService := services.NewCertificateService(db, cfg, opts.Clock, opts.Allocator,
		directoryService, notificationService, opts.Collector)

	authService := services.NewAuthService(db, cfg, opts.Clock)
	categoryService := services.NewCategoryService(db)
	productService := services.NewProductService(db, opts.Clock, notificationService)
	evaluationService := services.NewEvaluationService(db, opts.Clock, certificateService,
		notificationService, opts.Collector)
	accountService := services.NewAccountService(db, cfg, opts.Clock, notificationService)
	documentService := services.NewDocumentService(db, cfg, opts.Storage, directoryService)
	qrService := services.NewQRService(db, cfg, opts.Clock, opts.Collector)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	productHandler := handlers.NewProductHandler(productService)
	evaluationHandler := handlers.NewEvaluationHandler(evaluationService)
	certificateHandler := handlers.NewCertificateHandler(certificateService, documentService)
	adminHandler := handlers.NewAdminHandler(accountService, directoryService)
	directoryHandler := handlers.NewDirectoryHandler(directoryService)
	qrHandler := handlers.NewQRHandler(qrService)
	uploadHandler := handlers.NewUploadHandler(opts.Storage)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	registry := prometheus.NewRegistry()
	registry.MustRegister(opts.Collector, collectors.NewGoCollector())

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(opts.RateLimits.General.Middleware())
	r.Use(middleware.Metrics(opts.Collector))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(opts.RateLimits.Auth.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		v1.GET("/categories", categoryHandler.GetCategories)

		// Product routes
		products := v1.Group("/products")
		products.Use(middleware.AuthRequired())
		{
			products.GET("", productHandler.GetProducts)
			products.POST("", middleware.RoleRequired(models.RoleProducer), productHandler.CreateProduct)
			products.GET("/:id", productHandler.GetProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
			products.PATCH("/:id/status", middleware.AdminRequired(), productHandler.UpdateStatus)
			products.GET("/:id/evaluation", evaluationHandler.GetEvaluation)
			products.GET("/:id/qr", qrHandler.GetProductQR)
		}

		v1.POST("/evaluations", middleware.AuthRequired(), middleware.AdminRequired(), evaluationHandler.SubmitEvaluation)

		// Certificate routes
		certificates := v1.Group("/certificates")
		certificates.Use(middleware.AuthRequired())
		{
			certificates.GET("/:id", certificateHandler.GetCertificate)
			certificates.POST("", middleware.AdminRequired(), certificateHandler.IssueCertificate)
			certificates.PATCH("/:id", middleware.AdminRequired(), certificateHandler.UpdateCertificate)
			certificates.DELETE("/:id", middleware.AdminRequired(), certificateHandler.DeleteCertificate)
			certificates.POST("/:id/pdf", middleware.AdminRequired(), certificateHandler.GeneratePDF)
		}

		// Public routes
		v1.GET("/directory/winners", middleware.OptionalAuth(), directoryHandler.ListWinners)
		v1.GET("/verify/:number", certificateHandler.VerifyCertificate)
		v1.GET("/qr/:code", qrHandler.Scan)

		v1.POST("/uploads/images", middleware.AuthRequired(), opts.RateLimits.Upload.Middleware(), uploadHandler.UploadImage)

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			adminProducers := admin.Group("/producers")
			{
				adminProducers.GET("", adminHandler.GetProducers)
				adminProducers.PATCH("/:id", adminHandler.UpdateProducerStatus)
				adminProducers.DELETE("/:id", adminHandler.CloseProducerAccount)
			}

			adminCategories := admin.Group("/categories")
			{
				adminCategories.POST("", categoryHandler.CreateCategory)
				adminCategories.PUT("/:id", categoryHandler.UpdateCategory)
				adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)
			}

			admin.POST("/products/:id/evaluation-form", evaluationHandler.GetEvaluationForm)
		}
	}

	// Static file serving when uploads stay on local disk
	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.Storage.LocalPath)
	}

	return r, nil
}
