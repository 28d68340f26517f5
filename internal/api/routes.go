package api

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/video_feed", s.videoHandler.VideoFeed)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthHandler.HealthCheck)
		api.GET("/system_status", s.systemHandler.GetSystemStatus)

		api.GET("/alerts", s.alertHandler.ListAlerts)
		api.GET("/recent_alerts", s.alertHandler.RecentAlerts)
		api.PUT("/alert/:id", s.alertHandler.UpdateAlert)
		api.GET("/activity_logs", s.alertHandler.ActivityLogs)

		api.GET("/threat_config", s.systemHandler.GetThreatConfig)
		api.POST("/threat_config", s.systemHandler.UpdateThreatConfig)
	}

	cameras := api.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.POST("", s.cameraHandler.AddCamera)
		cameras.PUT("/:id", s.cameraHandler.UpdateCamera)
		cameras.DELETE("/:id", s.cameraHandler.RemoveCamera)
		cameras.POST("/:id/activate", s.cameraHandler.ActivateCamera)
	}
}
