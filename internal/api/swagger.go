package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"vigil-worker-go/docs"
)

func (s *Server) setupSwagger() {
	docs.SwaggerInfo.Host = s.config.SwaggerHost
	docs.SwaggerInfo.Version = s.config.Version

	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       docs.SwaggerInfo.Title,
			"version":     s.config.Version,
			"description": docs.SwaggerInfo.Description,
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":        "/api/health",
				"worker_info":   "/",
				"video_feed":    "/video_feed",
				"system_status": "/api/system_status",
				"cameras":       "/api/cameras",
				"alerts":        "/api/alerts",
				"recent_alerts": "/api/recent_alerts",
				"activity_logs": "/api/activity_logs",
				"threat_config": "/api/threat_config",
				"metrics":       "/metrics",
			},
			"worker_id": s.config.WorkerID,
			"port":      s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
