package api

import (
	"github.com/gin-gonic/gin"

	"github.com/myksyouki/lesson-manager-sub001/internal/api/handler"
	"github.com/myksyouki/lesson-manager-sub001/internal/api/middleware"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	jobsHandler *handler.JobsHandler,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs/process", jobsHandler.ProcessJob)
		v1.GET("/jobs/:id", jobsHandler.GetJob)
	}

	return r
}
