package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Patricklolilol/ffmpeg-service/ddd/application/app"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/middleware"
)

// Router wires the HTTP surface over the application services.
type Router struct {
	mediaApp app.MediaApp
	authCfg  config.AuthConfig
}

// NewRouter creates the route configuration.
func NewRouter(mediaApp app.MediaApp, authCfg config.AuthConfig) *Router {
	return &Router{mediaApp: mediaApp, authCfg: authCfg}
}

// SetupMiddleware installs the shared middleware chain.
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestContextMiddleware())
}

// SetupRoutes registers all endpoints.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	mediaController := NewMediaController(r.mediaApp)

	api := engine.Group("/")
	api.Use(middleware.AuthMiddleware(r.authCfg))
	{
		api.POST("/process", mediaController.Process)
		api.GET("/info", mediaController.Info)
		api.POST("/info", mediaController.Info)
		api.GET("/status/:job_id", mediaController.Info)
		api.POST("/jobs/:job_id/cancel", mediaController.Cancel)
		api.GET("/download/:name", mediaController.Download)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "ffmpeg-service",
		})
	})

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "FFmpeg Service API",
			"submit":  "POST /process",
			"status":  "GET /status/:job_id",
		})
	})
}
