package api

import (
	"net/http"

	_ "firewatch-worker-go/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Firewatch Worker API",
			"version":     s.config.Version,
			"description": "Fire and smoke detection worker API for alert review and notifications",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":  "/health",
				"alerts":  "/api/alerts",
				"metrics": "/metrics",
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
