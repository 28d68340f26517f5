package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/models"
)

// StateReader exposes the shared system state
type StateReader interface {
	Snapshot() models.SystemSnapshot
}

// ModelStatus reports whether a detection model is loaded
type ModelStatus interface {
	ModelLoaded() bool
}

// Pinger checks store connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	WorkerID string
	Version  string

	state StateReader
	model ModelStatus
	store Pinger
	now   Clock
}

func NewHealthHandler(workerID, version string, state StateReader, model ModelStatus, store Pinger, now Clock) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, state: state, model: model, store: store, now: now}
}

type HealthResponse struct {
	Status             string              `json:"status" example:"healthy"`
	Timestamp          time.Time           `json:"timestamp"`
	VideoStreamActive  bool                `json:"video_stream_active"`
	ModelLoaded        bool                `json:"model_loaded"`
	StoreConnected     bool                `json:"store_connected"`
	CurrentCameraID    string              `json:"current_camera_id"`
	SystemStatus       models.SystemStatus `json:"system_status" example:"running"`
	ThreatLevel        models.ThreatLevel  `json:"threat_level" example:"Low"`
	TotalDetections    int64               `json:"total_detections"`
	LastObjectDetected string              `json:"last_object_detected" example:"person"`
	WorkerID           string              `json:"worker_id" example:"worker-1"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Report pipeline, model and store health. Always returns 200.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	snap := h.state.Snapshot()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	storeOK := h.store != nil && h.store.Ping(ctx) == nil
	modelOK := h.model != nil && h.model.ModelLoaded()

	status := "healthy"
	if !modelOK || !storeOK {
		status = "degraded"
	}
	if !snap.SourceOpen {
		status = "offline"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:             status,
		Timestamp:          h.now(),
		VideoStreamActive:  snap.SourceOpen,
		ModelLoaded:        modelOK,
		StoreConnected:     storeOK,
		CurrentCameraID:    snap.ActiveCameraID,
		SystemStatus:       snap.Status,
		ThreatLevel:        snap.ThreatLevel,
		TotalDetections:    snap.TotalDetections,
		LastObjectDetected: snap.LastObjectDetected,
		WorkerID:           h.WorkerID,
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   string(h.state.Snapshot().Status),
		Version:  h.Version,
		Capabilities: []string{
			"object_detection",
			"threat_classification",
			"mjpeg_streaming",
			"alerting",
		},
	})
}
