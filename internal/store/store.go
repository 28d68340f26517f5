package store

import (
	"context"
	"errors"
	"time"

	"vigil-worker-go/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDefaultCamera is returned when deleting the default camera
	ErrDefaultCamera = errors.New("cannot delete default camera")
)

// CameraStore persists registered cameras
type CameraStore interface {
	ListCameras(ctx context.Context) ([]models.Camera, error)
	GetCamera(ctx context.Context, id string) (*models.Camera, error)
	CreateCamera(ctx context.Context, camera *models.Camera) error
	UpdateCamera(ctx context.Context, id string, update models.CameraUpdate) (*models.Camera, error)
	DeleteCamera(ctx context.Context, id string) error
	// DefaultCamera returns the default camera, or the first active one
	DefaultCamera(ctx context.Context) (*models.Camera, error)
}

// AlertStore persists alerts
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter models.ListFilter) ([]models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus, updatedBy string, at time.Time) (*models.Alert, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int, error)
}

// ActivityLogStore is an append-only audit trail
type ActivityLogStore interface {
	AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivityLogs(ctx context.Context, filter models.ListFilter) ([]models.ActivityLog, error)
}

// SettingsStore holds singleton documents with merge-upsert semantics
type SettingsStore interface {
	// MergeSetting upserts the given fields, preserving fields not given
	MergeSetting(ctx context.Context, key string, fields map[string]any) error
	GetSetting(ctx context.Context, key string) (map[string]any, error)
}

// Store is the external document store
type Store interface {
	CameraStore
	AlertStore
	ActivityLogStore
	SettingsStore

	Ping(ctx context.Context) error
	Close()
}

// DefaultLimit applies when a listing asks for no limit
const DefaultLimit = 50

// Bootstrap registers the default webcam and seeds the settings documents
// when they are missing.
func Bootstrap(ctx context.Context, s Store, now time.Time) error {
	if _, err := s.DefaultCamera(ctx); errors.Is(err, ErrNotFound) {
		cam := &models.Camera{
			Name:      "Default Webcam",
			Source:    "0",
			Status:    models.CameraStatusActive,
			IsActive:  true,
			IsDefault: true,
			CreatedAt: now,
		}
		if err := s.CreateCamera(ctx, cam); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := s.MergeSetting(ctx, models.SettingSystemStatus, map[string]any{
		"status":               string(models.SystemStatusStarting),
		"threat_level":         string(models.ThreatLevelLow),
		"total_detections":     0,
		"last_object_detected": models.NoObjectDetected,
		"timestamp":            now,
	}); err != nil {
		return err
	}

	existing, err := s.GetSetting(ctx, models.SettingThreatConfig)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, ok := existing["monitored_objects"]; !ok {
		return s.MergeSetting(ctx, models.SettingThreatConfig, map[string]any{
			"threat_level":      string(models.ThreatLevelLow),
			"monitored_objects": models.DefaultMonitoredObjects,
			"timestamp":         now,
		})
	}
	return nil
}
