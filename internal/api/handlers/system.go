package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/threat"
)

// SystemStore is what the status and threat config endpoints read and write
type SystemStore interface {
	ListCameras(ctx context.Context) ([]models.Camera, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int, error)
	MergeSetting(ctx context.Context, key string, fields map[string]any) error
	GetSetting(ctx context.Context, key string) (map[string]any, error)
	ActivityRecorder
}

// ThreatState is the shared state the threat config endpoint updates
type ThreatState interface {
	Snapshot() models.SystemSnapshot
	SetThreatLevel(level models.ThreatLevel)
}

// VocabularyConfig exposes the classifier vocabularies
type VocabularyConfig interface {
	Vocabulary() threat.Vocabulary
	Reconfigure(vocab threat.Vocabulary)
}

// SystemHandler handles system status and threat configuration
type SystemHandler struct {
	store      SystemStore
	state      ThreatState
	vocabulary VocabularyConfig
	now        Clock
}

func NewSystemHandler(store SystemStore, state ThreatState, vocabulary VocabularyConfig, now Clock) *SystemHandler {
	return &SystemHandler{store: store, state: state, vocabulary: vocabulary, now: now}
}

// @Summary System status
// @Description Current pipeline status with alert and camera counts. Store failures degrade to zero counts.
// @Tags system
// @Produce json
// @Success 200 {object} models.SystemStatusResponse
// @Router /api/system_status [get]
func (h *SystemHandler) GetSystemStatus(c *gin.Context) {
	ctx := c.Request.Context()
	snap := h.state.Snapshot()

	now := h.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	alertsToday, err := h.store.CountAlertsSince(ctx, midnight)
	if err != nil {
		logging.Warn(c).Err(err).Msg("Failed to count today's alerts")
		alertsToday = 0
	}

	var active, total int
	if cameras, err := h.store.ListCameras(ctx); err != nil {
		logging.Warn(c).Err(err).Msg("Failed to list cameras")
	} else {
		total = len(cameras)
		active = lo.CountBy(cameras, func(cam models.Camera) bool {
			return cam.Status == models.CameraStatusActive
		})
	}

	c.JSON(http.StatusOK, models.SystemStatusResponse{
		Status:             snap.Status,
		ThreatLevel:        snap.ThreatLevel,
		AlertsToday:        alertsToday,
		CamerasActive:      fmt.Sprintf("%d/%d", active, total),
		ActiveCameras:      active,
		TotalCameras:       total,
		TotalDetections:    snap.TotalDetections,
		LastObjectDetected: snap.LastObjectDetected,
	})
}

// @Summary Threat configuration
// @Tags system
// @Produce json
// @Success 200 {object} models.ThreatConfig
// @Router /api/threat_config [get]
func (h *SystemHandler) GetThreatConfig(c *gin.Context) {
	level := h.state.Snapshot().ThreatLevel
	monitored := models.DefaultMonitoredObjects
	var updatedBy string

	doc, err := h.store.GetSetting(c.Request.Context(), models.SettingThreatConfig)
	if err != nil {
		logging.Debug(c).Err(err).Msg("Threat config not stored, using defaults")
	} else {
		if s, ok := doc["threat_level"].(string); ok {
			if parsed, ok := models.ParseThreatLevel(s); ok {
				level = parsed
			}
		}
		if objs := stringList(doc["monitored_objects"]); objs != nil {
			monitored = objs
		}
		updatedBy, _ = doc["updated_by"].(string)
	}

	vocab := h.vocabulary.Vocabulary()
	c.JSON(http.StatusOK, models.ThreatConfig{
		ThreatLevel:      level,
		Level:            level,
		MonitoredObjects: monitored,
		HighLabels:       vocab.High,
		NotableLabels:    vocab.Notable,
		UpdatedBy:        updatedBy,
		Timestamp:        h.now().UTC(),
	})
}

// @Summary Update threat configuration
// @Description Set the threat level and monitored objects. Given vocabularies replace the classifier's.
// @Tags system
// @Accept json
// @Produce json
// @Param request body models.ThreatConfigRequest true "Threat config"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/threat_config [post]
func (h *SystemHandler) UpdateThreatConfig(c *gin.Context) {
	var req models.ThreatConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	raw := lo.CoalesceOrEmpty(req.ThreatLevel, req.Level, string(models.ThreatLevelLow))
	level, ok := models.ParseThreatLevel(raw)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "Invalid threat level")
		return
	}
	monitored := req.MonitoredObjects
	if len(monitored) == 0 {
		monitored = models.DefaultMonitoredObjects
	}

	userID, _ := logging.Identity(c)
	fields := map[string]any{
		"threat_level":      string(level),
		"level":             string(level),
		"monitored_objects": monitored,
		"timestamp":         h.now().UTC(),
		"updated_by":        userID,
	}

	if req.HighLabels != nil || req.NotableLabels != nil {
		vocab := h.vocabulary.Vocabulary()
		if req.HighLabels != nil {
			vocab.High = req.HighLabels
		}
		if req.NotableLabels != nil {
			vocab.Notable = req.NotableLabels
		}
		h.vocabulary.Reconfigure(vocab)
		vocab = h.vocabulary.Vocabulary()
		fields["high_labels"] = vocab.High
		fields["notable_labels"] = vocab.Notable
	}

	if err := h.store.MergeSetting(c.Request.Context(), models.SettingThreatConfig, fields); err != nil {
		logging.Error(c).Err(err).Msg("Failed to update threat config")
		errorJSON(c, http.StatusInternalServerError, "Failed to update threat config")
		return
	}
	h.state.SetThreatLevel(level)

	recordActivity(c, h.store, h.now(), models.ActivityLog{
		Message:     fmt.Sprintf("Threat config updated. New level: %s", level),
		ThreatLevel: level,
	})
	logging.Info(c).Str("threat_level", string(level)).Msg("Threat config updated")

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Threat config updated."})
}

// stringList accepts both []string and decoded JSON arrays
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		return lo.FilterMap(list, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	default:
		return nil
	}
}
