package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/store"
)

// AlertStore is the alert history with its audit trail
type AlertStore interface {
	store.AlertStore
	store.ActivityLogStore
}

type AlertHandler struct {
	store AlertStore
	now   Clock
}

func NewAlertHandler(store AlertStore, now Clock) *AlertHandler {
	return &AlertHandler{store: store, now: now}
}

// ListAlerts returns alerts newest first
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param status query string false "all, unverified, verified or dismissed"
// @Param limit query int false "Maximum number of alerts" default(50)
// @Success 200 {array} models.Alert
// @Failure 500 {object} ErrorResponse
// @Router /api/alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	h.list(c, models.ListFilter{
		Status: c.DefaultQuery("status", "all"),
		Limit:  queryLimit(c, 50),
	})
}

// RecentAlerts returns the latest alerts regardless of status
// @Summary Recent alerts
// @Tags alerts
// @Produce json
// @Param limit query int false "Maximum number of alerts" default(5)
// @Success 200 {array} models.Alert
// @Failure 500 {object} ErrorResponse
// @Router /api/recent_alerts [get]
func (h *AlertHandler) RecentAlerts(c *gin.Context) {
	h.list(c, models.ListFilter{Status: "all", Limit: queryLimit(c, 5)})
}

func (h *AlertHandler) list(c *gin.Context, filter models.ListFilter) {
	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to fetch alerts")
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// UpdateAlert records a reviewer's verdict on an alert
// @Summary Review an alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param request body models.AlertStatusRequest true "New status"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/alert/{id} [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	id := c.Param("id")

	var req models.AlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.IsValid() {
		errorJSON(c, http.StatusBadRequest, "Invalid status")
		return
	}

	userID, _ := logging.Identity(c)
	alert, err := h.store.UpdateAlertStatus(c.Request.Context(), id, req.Status, userID, h.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "Alert not found")
			return
		}
		logging.Error(c).Err(err).Str("alert_id", id).Msg("Failed to update alert")
		errorJSON(c, http.StatusInternalServerError, "Failed to update alert")
		return
	}

	var msg string
	switch req.Status {
	case models.AlertStatusVerified:
		msg = fmt.Sprintf("Alert verified - %s detected on %s", strings.Join(alert.Detections, ", "), alert.CameraName)
	case models.AlertStatusDismissed:
		msg = fmt.Sprintf("Alert dismissed - ID: %s", id)
	default:
		msg = fmt.Sprintf("Alert reopened - ID: %s", id)
	}
	recordActivity(c, h.store, h.now(), models.ActivityLog{
		Message:     msg,
		Camera:      alert.CameraName,
		Detections:  alert.Detections,
		ThreatLevel: alert.ThreatLevel,
	})
	logging.Info(c).Str("alert_id", id).Str("status", string(req.Status)).Msg("Alert reviewed")

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: fmt.Sprintf("Alert %s successfully", req.Status)})
}

// ActivityLogs returns the audit trail newest first
// @Summary Activity logs
// @Tags alerts
// @Produce json
// @Param status query string false "Status filter" default(all)
// @Param limit query int false "Maximum number of entries" default(100)
// @Success 200 {array} models.ActivityLog
// @Failure 500 {object} ErrorResponse
// @Router /api/activity_logs [get]
func (h *AlertHandler) ActivityLogs(c *gin.Context) {
	logs, err := h.store.ListActivityLogs(c.Request.Context(), models.ListFilter{
		Status: c.DefaultQuery("status", "all"),
		Limit:  queryLimit(c, 100),
	})
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to fetch activity logs")
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch activity logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}
