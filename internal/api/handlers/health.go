package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firewatch-worker-go/internal/alerts"
)

type HealthHandler struct {
	workerID string
	version  string
	store    *alerts.Store
}

func NewHealthHandler(workerID, version string, store *alerts.Store) *HealthHandler {
	return &HealthHandler{
		workerID: workerID,
		version:  version,
		store:    store,
	}
}

type HealthResponse struct {
	Status        string `json:"status" example:"healthy"`
	WorkerID      string `json:"worker_id" example:"firewatch-1"`
	PendingAlerts int    `json:"pending_alerts" example:"3"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"firewatch-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		WorkerID:      h.workerID,
		PendingAlerts: h.store.PendingCount(),
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.workerID,
		Status:   "running",
		Version:  h.version,
		Capabilities: []string{
			"fire_smoke_detection",
			"alert_review",
			"telegram_notifications",
		},
	})
}
