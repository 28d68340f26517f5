package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error" example:"Camera not found"`
}

// SuccessResponse acknowledges a mutation
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Camera updated successfully."`
}

// ActivityRecorder appends audit entries
type ActivityRecorder interface {
	AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error
}

// Clock returns the current time
type Clock func() time.Time

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}

// queryLimit reads ?limit, falling back to def for missing or invalid values
func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// recordActivity writes an audit entry for the calling user. Failures are
// logged and never fail the request.
func recordActivity(c *gin.Context, rec ActivityRecorder, now time.Time, entry models.ActivityLog) {
	entry.UserID, entry.Role = logging.Identity(c)
	if entry.Camera == "" {
		entry.Camera = "Unknown"
	}
	if entry.ThreatLevel == "" {
		entry.ThreatLevel = models.ThreatLevelLow
	}
	if entry.Detections == nil {
		entry.Detections = []string{}
	}
	if entry.Status == "" {
		entry.Status = string(models.AlertStatusVerified)
	}
	entry.Timestamp = now.UTC()

	if err := rec.AppendActivityLog(c.Request.Context(), &entry); err != nil {
		logging.Warn(c).Err(err).Str("message", entry.Message).Msg("Failed to append activity log")
	}
}
