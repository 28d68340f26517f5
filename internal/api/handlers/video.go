package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/services/pipeline"
)

// VideoHandler serves the annotated live feed
type VideoHandler struct {
	activator Activator
	stream    http.Handler
}

func NewVideoHandler(activator Activator, stream http.Handler) *VideoHandler {
	return &VideoHandler{activator: activator, stream: stream}
}

// VideoFeed godoc
// @Summary Live annotated video feed
// @Description MJPEG stream (multipart/x-mixed-replace; boundary=frame) of the active camera
// @Tags video
// @Produce multipart/x-mixed-replace
// @Success 200 {file} binary
// @Failure 503 {string} string "No active cameras available"
// @Router /video_feed [get]
func (h *VideoHandler) VideoFeed(c *gin.Context) {
	if err := h.activator.EnsureActive(c.Request.Context()); err != nil {
		if errors.Is(err, pipeline.ErrNoCamera) {
			c.String(http.StatusServiceUnavailable, "No active cameras available")
			return
		}
		// a camera that fails to connect keeps retrying; the placeholder is streamed meanwhile
		logging.Warn(c).Err(err).Msg("Active camera not connected")
	}

	h.stream.ServeHTTP(c.Writer, c.Request)
}
