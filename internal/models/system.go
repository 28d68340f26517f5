package models

import "time"

// SystemStatus is the process-wide pipeline status
type SystemStatus string

const (
	SystemStatusOffline  SystemStatus = "offline"
	SystemStatusStarting SystemStatus = "starting"
	SystemStatusRunning  SystemStatus = "running"
)

// Settings documents upserted with merge semantics
const (
	SettingSystemStatus = "system_status"
	SettingThreatConfig = "threat_config"
)

// NoObjectDetected is reported before the first detection
const NoObjectDetected = "N/A"

// SystemSnapshot is a consistent copy of the shared system state
type SystemSnapshot struct {
	Status             SystemStatus `json:"status"`
	ThreatLevel        ThreatLevel  `json:"threat_level"`
	ActiveCameraID     string       `json:"current_camera_id"`
	TotalDetections    int64        `json:"total_detections"`
	LastObjectDetected string       `json:"last_object_detected"`
	SourceOpen         bool         `json:"video_stream_active"`
}

// SystemStatusResponse is returned by the status endpoint
type SystemStatusResponse struct {
	Status             SystemStatus `json:"status" example:"running"`
	ThreatLevel        ThreatLevel  `json:"threat_level" example:"Low"`
	AlertsToday        int          `json:"alerts_today"`
	CamerasActive      string       `json:"cameras_active" example:"1/2"`
	ActiveCameras      int          `json:"active_cameras"`
	TotalCameras       int          `json:"total_cameras"`
	TotalDetections    int64        `json:"total_detections"`
	LastObjectDetected string       `json:"last_object_detected" example:"person"`
}

// ThreatConfig is the threat_config settings document
type ThreatConfig struct {
	ThreatLevel      ThreatLevel `json:"threat_level"`
	Level            ThreatLevel `json:"level"`
	MonitoredObjects []string    `json:"monitored_objects"`
	HighLabels       []string    `json:"high_labels"`
	NotableLabels    []string    `json:"notable_labels"`
	UpdatedBy        string      `json:"updated_by,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}

// ThreatConfigRequest is the body accepted when updating the threat config
type ThreatConfigRequest struct {
	ThreatLevel      string   `json:"threat_level"`
	Level            string   `json:"level"`
	MonitoredObjects []string `json:"monitored_objects"`
	HighLabels       []string `json:"high_labels"`
	NotableLabels    []string `json:"notable_labels"`
}

// DefaultMonitoredObjects is stored when no threat config exists yet
var DefaultMonitoredObjects = []string{"knife", "gun", "person"}
