package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/pipeline"
	"vigil-worker-go/internal/store"
)

// CameraStore is the camera registry with its audit trail
type CameraStore interface {
	store.CameraStore
	ActivityRecorder
}

// Activator switches the pipeline to a camera
type Activator interface {
	Activate(ctx context.Context, camera *models.Camera) error
	EnsureActive(ctx context.Context) error
}

type CameraHandler struct {
	store     CameraStore
	activator Activator
	now       Clock
}

func NewCameraHandler(store CameraStore, activator Activator, now Clock) *CameraHandler {
	return &CameraHandler{store: store, activator: activator, now: now}
}

// CameraResponse wraps a created camera
type CameraResponse struct {
	SuccessResponse
	Camera *models.Camera `json:"camera"`
}

// ListCameras lists all cameras
// @Summary List all cameras
// @Tags cameras
// @Produce json
// @Success 200 {array} models.Camera
// @Failure 500 {object} ErrorResponse
// @Router /api/cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras, err := h.store.ListCameras(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list cameras")
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cameras)
}

// AddCamera registers a camera
// @Summary Register a camera
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraRequest true "Camera"
// @Success 200 {object} CameraResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/cameras [post]
func (h *CameraHandler) AddCamera(c *gin.Context) {
	var req models.CameraRequest
	_ = c.ShouldBindJSON(&req)
	name, url := strings.TrimSpace(req.Name), strings.TrimSpace(req.RTSPURL)
	if name == "" || url == "" {
		errorJSON(c, http.StatusBadRequest, "Camera name and RTSP URL are required")
		return
	}

	camera := &models.Camera{
		Name:      name,
		RTSPURL:   url,
		Source:    url,
		Status:    models.CameraStatusActive,
		IsActive:  true,
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.CreateCamera(c.Request.Context(), camera); err != nil {
		logging.Error(c).Err(err).Msg("Failed to add camera")
		errorJSON(c, http.StatusInternalServerError, "Failed to add camera")
		return
	}

	recordActivity(c, h.store, h.now(), models.ActivityLog{
		Message: fmt.Sprintf("New camera '%s' added with RTSP: %s", name, url),
	})
	logging.Info(c).Str("camera_id", camera.ID).Str("name", name).Msg("Camera added")

	c.JSON(http.StatusOK, CameraResponse{
		SuccessResponse: SuccessResponse{Success: true, Message: "Camera added successfully."},
		Camera:          camera,
	})
}

// UpdateCamera changes a camera's name, URL or status
// @Summary Update a camera
// @Tags cameras
// @Accept json
// @Produce json
// @Param id path string true "Camera ID"
// @Param request body models.CameraUpdate true "Fields to change"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cameras/{id} [put]
func (h *CameraHandler) UpdateCamera(c *gin.Context) {
	id := c.Param("id")

	var update models.CameraUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if update.Name != nil {
		v := strings.TrimSpace(*update.Name)
		update.Name = &v
	}
	if update.RTSPURL != nil {
		v := strings.TrimSpace(*update.RTSPURL)
		update.RTSPURL = &v
	}
	if update.Status != nil && !update.Status.IsValid() {
		errorJSON(c, http.StatusBadRequest, "Invalid camera status")
		return
	}

	if _, err := h.store.UpdateCamera(c.Request.Context(), id, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "Camera not found")
			return
		}
		logging.Error(c).Err(err).Str("camera_id", id).Msg("Failed to update camera")
		errorJSON(c, http.StatusInternalServerError, "Failed to update camera")
		return
	}

	recordActivity(c, h.store, h.now(), models.ActivityLog{Message: fmt.Sprintf("Camera %s updated", id)})
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Camera updated successfully."})
}

// RemoveCamera deletes a camera. The default camera cannot be deleted.
// @Summary Delete a camera
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cameras/{id} [delete]
func (h *CameraHandler) RemoveCamera(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	name := "Unknown"
	if cam, err := h.store.GetCamera(ctx, id); err == nil {
		name = cam.Name
	}

	if err := h.store.DeleteCamera(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrDefaultCamera):
			errorJSON(c, http.StatusBadRequest, "Cannot delete default camera")
		case errors.Is(err, store.ErrNotFound):
			errorJSON(c, http.StatusNotFound, "Camera not found")
		default:
			logging.Error(c).Err(err).Str("camera_id", id).Msg("Failed to delete camera")
			errorJSON(c, http.StatusInternalServerError, "Failed to delete camera")
		}
		return
	}

	recordActivity(c, h.store, h.now(), models.ActivityLog{Message: fmt.Sprintf("Camera '%s' deleted", name)})
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Camera deleted successfully."})
}

// ActivateCamera switches the live pipeline to a camera
// @Summary Activate a camera
// @Description Switch the video source. A newer activation preempts this one.
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/cameras/{id}/activate [post]
func (h *CameraHandler) ActivateCamera(c *gin.Context) {
	id := c.Param("id")

	camera, err := h.store.GetCamera(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "Camera not found")
			return
		}
		logging.Error(c).Err(err).Str("camera_id", id).Msg("Failed to load camera")
		errorJSON(c, http.StatusInternalServerError, "Failed to activate camera")
		return
	}

	if err := h.activator.Activate(c.Request.Context(), camera); err != nil {
		logging.Warn(c).Err(err).Str("camera_id", id).Msg("Camera activation failed")
		switch {
		case errors.Is(err, pipeline.ErrSuperseded):
			errorJSON(c, http.StatusConflict, "Camera switch superseded by a newer request")
		case errors.Is(err, pipeline.ErrConnectFailed):
			errorJSON(c, http.StatusInternalServerError, "Failed to connect to camera")
		default:
			errorJSON(c, http.StatusInternalServerError, "Failed to activate camera")
		}
		return
	}

	name := camera.Name
	if name == "" {
		name = "Unknown Camera"
	}
	msg := "Switched to camera: " + name
	recordActivity(c, h.store, h.now(), models.ActivityLog{Message: msg, Camera: name})
	logging.Info(c).Str("camera_id", id).Msg("Camera activated")

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msg})
}
