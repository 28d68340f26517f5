package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/detection"
	"vigil-worker-go/internal/services/inference"
	"vigil-worker-go/internal/services/messaging"
	"vigil-worker-go/internal/services/pipeline"
	"vigil-worker-go/internal/services/postprocessing"
	"vigil-worker-go/internal/services/publisher/mjpeg"
	"vigil-worker-go/internal/services/rekognition"
	"vigil-worker-go/internal/services/snapshots"
	"vigil-worker-go/internal/services/threat"
	"vigil-worker-go/internal/store"
	"vigil-worker-go/internal/store/memory"
	"vigil-worker-go/internal/store/postgres"
	"vigil-worker-go/internal/vision"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Store      store.Store
	Detection  *detection.Engine
	Classifier *threat.Classifier
	Sinks      *messaging.FanOut
	Alerts     *postprocessing.Service
	Stream     *mjpeg.Broadcaster
	Pipeline   *pipeline.Pipeline

	model io.Closer
}

// NewServiceContainer creates a new service container
func NewServiceContainer(ctx context.Context, cfg *config.Config) (*ServiceContainer, error) {
	m := metrics.New()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	encoder := vision.NewJPEGEncoder()
	classifier := threat.NewClassifier(loadVocabulary(cfg))

	model, closer := loadModel(ctx, cfg, encoder)
	engine := detection.NewEngine(model, vision.NewOverlay(classifier.IsHigh, classifier.IsNotable), cfg.AITimeout)

	sinks := messaging.NewSinks(cfg)
	var publisher models.MessagePublisher
	if sinks.Len() > 0 {
		publisher = sinks
	}

	var uploader postprocessing.SnapshotUploader
	if cfg.SnapshotsEnabled {
		u, err := snapshots.NewUploader(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Alert snapshots disabled")
		} else {
			uploader = u
		}
	}

	alerts := postprocessing.NewService(cfg, st, publisher, uploader)
	state := pipeline.NewState()

	stream := mjpeg.NewBroadcaster(mjpeg.Options{
		Buffer:    cfg.SubscriberBuffer,
		MaxDrops:  cfg.SubscriberMaxDrop,
		Keepalive: cfg.KeepaliveInterval,
		Placeholder: func() []byte {
			return vision.Placeholder(state.Snapshot().ActiveCameraID)
		},
	}, m)

	p := pipeline.New(cfg, state, pipeline.Deps{
		Store:      st,
		Opener:     vision.NewOpener(),
		Detector:   engine,
		Classifier: classifier,
		Cooldown:   postprocessing.NewCooldownTable(cfg.AlertsCooldown),
		Alerts:     alerts,
		Encoder:    encoder,
		Publisher:  stream,
		Metrics:    m,
	})

	return &ServiceContainer{
		Config:     cfg,
		Metrics:    m,
		Store:      st,
		Detection:  engine,
		Classifier: classifier,
		Sinks:      sinks,
		Alerts:     alerts,
		Stream:     stream,
		Pipeline:   p,
		model:      closer,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
		return memory.New(), nil
	}

	if cfg.DBMigrate {
		migrator, err := postgres.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		err = migrator.Up()
		if closeErr := migrator.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close migrator")
		}
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database migrations applied")
	}

	st, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func loadVocabulary(cfg *config.Config) threat.Vocabulary {
	vocab := threat.Vocabulary{High: cfg.ThreatHighLabels, Notable: cfg.ThreatNotableLabels}
	if cfg.ThreatConfigFile == "" {
		return vocab
	}
	fromFile, err := threat.LoadVocabulary(cfg.ThreatConfigFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.ThreatConfigFile).Msg("Failed to load threat vocabulary, using environment labels")
		return vocab
	}
	return fromFile
}

// loadModel builds the configured detector. Any failure leaves the engine
// without a model, which the health endpoint reports.
func loadModel(ctx context.Context, cfg *config.Config, encoder *vision.JPEGEncoder) (detection.Model, io.Closer) {
	logger := log.With().Str("detector", cfg.Detector).Logger()

	switch cfg.Detector {
	case "yolo":
		m, err := vision.LoadYOLO(vision.YOLOConfig{
			ModelPath:           cfg.ModelPath,
			Classes:             cfg.ModelClasses,
			InputSize:           cfg.ModelInputSize,
			ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
			NMSThreshold:        float32(cfg.NMSThreshold),
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load model, detection disabled")
			return nil, nil
		}
		logger.Info().Str("model_path", cfg.ModelPath).Msg("Model loaded")
		return m, m

	case "grpc":
		c := inference.NewClient(cfg.AIGRPCURL, encoder)
		if err := c.Connect(); err != nil {
			logger.Error().Err(err).Msg("Failed to set up inference client, detection disabled")
			return nil, nil
		}
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.HealthCheck(hctx); err != nil {
			logger.Warn().Err(err).Msg("Inference service not healthy yet, requests will retry")
		}
		return c, c

	case "rekognition":
		m, err := rekognition.NewModel(ctx, rekognition.Config{
			Region:        cfg.AWSRegion,
			MinConfidence: float32(cfg.RekognitionMinConfidence),
		}, encoder)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to set up Rekognition, detection disabled")
			return nil, nil
		}
		return m, nil

	case "none", "":
		logger.Warn().Msg("No detector configured")
		return nil, nil

	default:
		logger.Error().Msg("Unknown detector, detection disabled")
		return nil, nil
	}
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.Stream != nil {
		sc.Stream.Close()
	}
	if sc.Sinks != nil {
		if err := sc.Sinks.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if sc.model != nil {
		if err := sc.model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model: %w", err))
		}
	}
	if sc.Store != nil {
		sc.Store.Close()
	}
	return errors.Join(errs...)
}
