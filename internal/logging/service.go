package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	if cameraID == "" {
		return base
	}
	return base.With().Str("camera_id", cameraID).Logger()
}
