package api

import (
	"github.com/etude-works/etude-api/internal/api/handlers"
	apimiddleware "github.com/etude-works/etude-api/internal/api/middleware"
	"github.com/etude-works/etude-api/internal/config"
	"github.com/etude-works/etude-api/internal/metrics"
	"github.com/etude-works/etude-api/internal/middleware"
	"github.com/etude-works/etude-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, cloudwatch *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cloudwatch))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(db, cfg)
	router.GET("/health", healthHandler.HealthCheck)

	// Auth for /api/v1: none (self-hosted), gateway (trust proxy headers)
	// or jwt (validate bearer tokens locally)
	var auth gin.HandlerFunc
	switch {
	case cfg.IsGatewayMode():
		auth = apimiddleware.GatewayAuth()
	case cfg.IsJWTMode():
		auth = middleware.JWTAuth(cfg)
	default:
		auth = apimiddleware.NoAuth()
	}

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		// Runtime metrics and usage counters
		metricsHandler := handlers.NewMetricsHandler(version, services.NewUsageService(db))
		v1.GET("/metrics", metricsHandler.GetMetrics)

		// Composition document endpoints - conversion, analysis, transforms
		compositionHandler := handlers.NewCompositionHandler()
		compositions := v1.Group("/compositions")
		{
			compositions.POST("/import", compositionHandler.Import)
			compositions.POST("/export", compositionHandler.Export)
			compositions.POST("/analyze", compositionHandler.Analyze)
			compositions.POST("/preview", compositionHandler.Preview)
			compositions.POST("/transpose", compositionHandler.Transpose)
			compositions.POST("/repair-pedals", compositionHandler.RepairPedals)
			compositions.POST("/diff", compositionHandler.Diff)
		}

		// Generation endpoint - brief or source+instruction, ?stream=true for SSE
		generationHandler := handlers.NewGenerationHandler(cfg, db, cloudwatch)
		v1.POST("/generate", generationHandler.Generate)

		// Reference corpus for scoring
		referenceHandler := handlers.NewReferenceHandler(db, cloudwatch)
		v1.GET("/references", referenceHandler.List)
		v1.POST("/references", referenceHandler.Add)

		scoreHandler := handlers.NewScoreHandler(db)
		v1.POST("/score", scoreHandler.Score)
	}

	return router
}
