package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vigil-worker-go/internal/models"
)

// SystemActor is the user and role recorded for pipeline-generated entries
const SystemActor = "system"

// BuildAlert creates an unverified alert for one frame's labels
func BuildAlert(cameraID, cameraName string, labels []string, level models.ThreatLevel, at time.Time) *models.Alert {
	return &models.Alert{
		ID:          uuid.NewString(),
		CameraID:    cameraID,
		CameraName:  cameraName,
		Detections:  labels,
		ThreatLevel: level,
		Status:      models.AlertStatusUnverified,
		Timestamp:   at.UTC(),
	}
}

// BuildDetectionLog creates the activity entry recorded with an automatic alert
func BuildDetectionLog(alert *models.Alert) *models.ActivityLog {
	return &models.ActivityLog{
		UserID:      SystemActor,
		Role:        SystemActor,
		Message:     fmt.Sprintf("Auto-detection: %s detected", strings.Join(alert.Detections, ", ")),
		Camera:      alert.CameraName,
		Detections:  alert.Detections,
		ThreatLevel: alert.ThreatLevel,
		Status:      string(alert.Status),
		Timestamp:   alert.Timestamp,
	}
}

// BuildEvent creates the notification published to alert sinks
func BuildEvent(alert *models.Alert, workerID string) models.AlertEvent {
	return models.AlertEvent{
		EventID:     uuid.NewString(),
		WorkerID:    workerID,
		AlertID:     alert.ID,
		CameraID:    alert.CameraID,
		CameraName:  alert.CameraName,
		Detections:  alert.Detections,
		ThreatLevel: alert.ThreatLevel,
		SnapshotURL: alert.SnapshotURL,
		Timestamp:   alert.Timestamp,
	}
}
