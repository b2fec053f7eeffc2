package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firewatch-worker-go/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())

	s.router.Use(middleware.Logger())

	s.router.Use(middleware.CORS())

	s.router.Use(middleware.RequestID())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	alerts := s.router.Group("/api/alerts")
	{
		alerts.GET("", s.alertHandler.ListAlerts)
		alerts.POST("/:id", s.alertHandler.ResolveAlert)
	}
}
