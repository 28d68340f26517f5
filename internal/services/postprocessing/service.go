package postprocessing

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/postprocessing/alerts"
)

// AlertStore is where alerts and their activity entries are recorded
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error
}

// SnapshotUploader stores the annotated frame of an alert and returns its URL
type SnapshotUploader interface {
	Upload(ctx context.Context, alertID string, jpeg []byte) (string, error)
}

// EmitRequest describes one cooldown-passing frame
type EmitRequest struct {
	CameraID   string
	CameraName string
	Labels     []string
	Level      models.ThreatLevel
	Snapshot   []byte // annotated JPEG, optional
	At         time.Time
}

// Service records and publishes alerts
type Service struct {
	store     AlertStore
	publisher models.MessagePublisher
	uploader  SnapshotUploader
	subject   string
	workerID  string
}

// NewService creates a new postprocessing service. publisher and uploader may be nil.
func NewService(cfg *config.Config, store AlertStore, publisher models.MessagePublisher, uploader SnapshotUploader) *Service {
	subject := cfg.AlertsSubject
	if subject == "" {
		subject = "alerts.surveillance"
	}

	log.Info().
		Str("subject", subject).
		Bool("publisher", publisher != nil).
		Bool("snapshots", uploader != nil).
		Msg("Post-processing service initialized")

	return &Service{
		store:     store,
		publisher: publisher,
		uploader:  uploader,
		subject:   subject,
		workerID:  cfg.WorkerID,
	}
}

// Emit stores one alert with its activity entry, attaches a snapshot when an
// uploader is configured and notifies the alert sinks. Every step is
// attempted; the first store error is returned.
func (s *Service) Emit(ctx context.Context, req EmitRequest) (*models.Alert, error) {
	start := time.Now()
	labels := models.SortedUniqueLabels(req.Labels)
	alert := alerts.BuildAlert(req.CameraID, req.CameraName, labels, req.Level, req.At)

	logger := log.With().
		Str("camera_id", req.CameraID).
		Str("alert_id", alert.ID).
		Strs("detections", labels).
		Str("threat_level", string(req.Level)).
		Logger()

	if s.uploader != nil && len(req.Snapshot) > 0 {
		url, err := s.uploader.Upload(ctx, alert.ID, req.Snapshot)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to upload alert snapshot")
		} else {
			alert.SnapshotURL = url
		}
	}

	var firstErr error
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		logger.Error().Err(err).Msg("Failed to store alert")
		firstErr = err
	}
	if err := s.store.AppendActivityLog(ctx, alerts.BuildDetectionLog(alert)); err != nil {
		logger.Error().Err(err).Msg("Failed to append activity log")
		if firstErr == nil {
			firstErr = err
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(s.subject, alerts.BuildEvent(alert, s.workerID)); err != nil {
			logger.Error().Err(err).Msg("Failed to publish alert")
		}
	}

	logger.Info().
		Dur("processing_time", time.Since(start)).
		Msg("Alert emitted")

	return alert, firstErr
}
