package models

import "time"

// AlertStatus is the review lifecycle of an alert
type AlertStatus string

const (
	AlertStatusUnverified AlertStatus = "unverified"
	AlertStatusVerified   AlertStatus = "verified"
	AlertStatusDismissed  AlertStatus = "dismissed"
)

// IsValid checks if the alert status is one a reviewer may set
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusUnverified, AlertStatusVerified, AlertStatusDismissed:
		return true
	default:
		return false
	}
}

// Alert is a persisted detection event
type Alert struct {
	ID          string      `json:"id"`
	CameraName  string      `json:"camera"`
	CameraID    string      `json:"camera_id"`
	Detections  []string    `json:"detections"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
	Status      AlertStatus `json:"status"`
	SnapshotURL string      `json:"snapshot_url,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	UpdatedBy   string      `json:"updated_by,omitempty"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// AlertStatusRequest is the body of an alert review
type AlertStatusRequest struct {
	Status AlertStatus `json:"status" example:"verified"`
}

// ActivityLog is one audit entry
type ActivityLog struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Role        string      `json:"role"`
	Message     string      `json:"message"`
	Camera      string      `json:"camera"`
	Detections  []string    `json:"detections"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
	Status      string      `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ListFilter narrows alert and activity listings
type ListFilter struct {
	Status string
	Limit  int
}

// MatchesStatus reports whether a record status passes the filter
func (f ListFilter) MatchesStatus(status string) bool {
	return f.Status == "" || f.Status == "all" || f.Status == status
}

// AlertEvent is the notification published to alert sinks
type AlertEvent struct {
	EventID     string      `json:"event_id"`
	WorkerID    string      `json:"worker_id"`
	AlertID     string      `json:"alert_id"`
	CameraID    string      `json:"camera_id"`
	CameraName  string      `json:"camera"`
	Detections  []string    `json:"detections"`
	ThreatLevel ThreatLevel `json:"threat_level"`
	SnapshotURL string      `json:"snapshot_url,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
