package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/models"
)

type AlertHandler struct {
	store        *alerts.Store
	pendingLimit int
}

func NewAlertHandler(store *alerts.Store, pendingLimit int) *AlertHandler {
	return &AlertHandler{
		store:        store,
		pendingLimit: pendingLimit,
	}
}

type ResolveRequest struct {
	Status models.AlertStatus `json:"status" example:"confirmed"`
}

type ResolveResponse struct {
	Success bool  `json:"success" example:"true"`
	AlertID int64 `json:"alert_id" example:"1"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Alert not found"`
}

// @Summary List alerts
// @Description List pending alerts, or the most recent alerts of any status with status=all
// @Tags alerts
// @Accept json
// @Produce json
// @Param status query string false "Filter: pending (default) or all" Enums(pending, all)
// @Success 200 {array} models.Alert
// @Failure 400 {object} ErrorResponse
// @Router /api/alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var list []*models.Alert

	switch c.DefaultQuery("status", "pending") {
	case "pending":
		list = h.store.GetPending()
	case "all":
		list = h.store.GetAll(h.pendingLimit)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid status"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// @Summary Resolve an alert
// @Description Set an alert's status to confirmed or rejected
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path int true "Alert ID"
// @Param request body ResolveRequest true "New status"
// @Success 200 {object} ResolveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/alerts/{id} [post]
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid alert id"})
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Status != models.AlertStatusConfirmed && req.Status != models.AlertStatusRejected {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid status"})
		return
	}

	if !h.store.Resolve(id, req.Status) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Alert not found"})
		return
	}

	log.Info().
		Int64("alert_id", id).
		Str("status", string(req.Status)).
		Msg("Alert resolved via dashboard")

	c.JSON(http.StatusOK, ResolveResponse{
		Success: true,
		AlertID: id,
	})
}
