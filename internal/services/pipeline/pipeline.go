package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/postprocessing"
	"vigil-worker-go/internal/services/streamcapture"
)

var (
	// ErrSuperseded is returned when a newer switch request won
	ErrSuperseded = errors.New("camera switch superseded by a newer request")
	// ErrNoCamera is returned when no camera can be activated
	ErrNoCamera = errors.New("no active cameras available")
	// ErrConnectFailed is returned when the new source could not be opened
	ErrConnectFailed = errors.New("failed to connect to camera")
)

const unknownCamera = "Unknown Camera"

// Detector runs inference and draws the results
type Detector interface {
	Detect(ctx context.Context, frame *models.RawFrame) ([]models.Detection, error)
	Annotate(frame *models.RawFrame, detections []models.Detection) *models.RawFrame
}

// Classifier maps labels to a threat level
type Classifier interface {
	Classify(labels []string) models.ThreatLevel
}

// AlertEmitter records and publishes one alert
type AlertEmitter interface {
	Emit(ctx context.Context, req postprocessing.EmitRequest) (*models.Alert, error)
}

// Encoder converts frames into the streaming wire format
type Encoder interface {
	Encode(frame *models.RawFrame, quality int) ([]byte, error)
}

// FramePublisher delivers encoded frames to live feed subscribers
type FramePublisher interface {
	Publish(jpeg []byte)
}

// Store is the part of the document store the pipeline uses
type Store interface {
	GetCamera(ctx context.Context, id string) (*models.Camera, error)
	DefaultCamera(ctx context.Context) (*models.Camera, error)
	MergeSetting(ctx context.Context, key string, fields map[string]any) error
}

// Deps are the collaborators of a Pipeline
type Deps struct {
	Store      Store
	Opener     streamcapture.Opener
	Detector   Detector
	Classifier Classifier
	Cooldown   *postprocessing.CooldownTable
	Alerts     AlertEmitter
	Encoder    Encoder
	Publisher  FramePublisher
	Metrics    *metrics.Metrics
	Clock      func() time.Time
}

// Pipeline pulls frames from the active source and turns them into alerts
// and a live feed.
type Pipeline struct {
	cfg   *config.Config
	deps  Deps
	state *State
	clock func() time.Time

	connOpts    streamcapture.Options
	dirty       chan struct{}
	lastSweep   time.Time
	evictMaxAge time.Duration

	logger zerolog.Logger
}

func New(cfg *config.Config, state *State, deps Deps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := logging.NewServiceLogger(cfg, "pipeline")

	factor := cfg.AlertsCooldownEvictFactor
	if factor <= 0 {
		factor = 10
	}

	return &Pipeline{
		cfg:   cfg,
		deps:  deps,
		state: state,
		clock: clock,
		connOpts: streamcapture.Options{
			Capture: streamcapture.CaptureOptions{
				Width:  cfg.CaptureWidth,
				Height: cfg.CaptureHeight,
				FPS:    cfg.CaptureFPS,
			},
			MaxRetries:     cfg.MaxRetries,
			StaleThreshold: cfg.FrameStaleThreshold,
			Backoff: streamcapture.BackoffPolicy{
				Min:       cfg.ReconnectBackoffMin,
				Max:       cfg.ReconnectBackoffMax,
				JitterPct: cfg.ReconnectJitterPct,
			},
			Clock:  clock,
			Logger: &logger,
		},
		dirty:       make(chan struct{}, 1),
		lastSweep:   clock(),
		evictMaxAge: deps.Cooldown.Window() * time.Duration(factor),
		logger:      logger,
	}
}

// State returns the shared system state
func (p *Pipeline) State() *State {
	return p.state
}

// Run processes frames until ctx is cancelled, then releases the active source
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info().Msg("Stream pipeline started")

	go p.persistLoop(ctx)

	for ctx.Err() == nil {
		p.iterate(ctx)
	}

	if conn := p.state.detach(); conn != nil {
		conn.Release()
	}
	p.logger.Info().Msg("Stream pipeline stopped, video source released")
	return nil
}

// iterate runs one loop body. Panics are contained here so the loop survives.
func (p *Pipeline) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.deps.Metrics.IterationPanics.Add(1)
			p.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in pipeline iteration")
		}
	}()

	p.sweepCooldown()

	conn := p.state.Connection()
	if conn == nil {
		sleep(ctx, p.cfg.IdleDelay)
		return
	}

	// blocking read happens without the state lock
	frame, ok := conn.Read()
	if !ok {
		p.deps.Metrics.ReadFailures.Add(1)
		sleep(ctx, p.cfg.ReadRetryDelay)
		return
	}
	p.deps.Metrics.FramesRead.Add(1)

	p.processFrame(ctx, conn.CameraID(), frame)
}

func (p *Pipeline) processFrame(ctx context.Context, cameraID string, frame *models.RawFrame) {
	detections, err := p.deps.Detector.Detect(ctx, frame)
	if err != nil {
		p.deps.Metrics.InferenceFailures.Add(1)
		p.logger.Warn().Err(err).Str("camera_id", cameraID).Int64("frame_id", frame.FrameID).Msg("Inference failed, treating frame as empty")
		detections = nil
	}
	p.deps.Metrics.Detections.Add(uint64(len(detections)))

	labels := models.Labels(detections)
	var lastLabel string
	if len(labels) > 0 {
		lastLabel = labels[len(labels)-1]
	}

	level := p.deps.Classifier.Classify(labels)
	if p.state.recordFrame(len(detections), lastLabel, level) {
		p.logger.Info().Str("threat_level", string(level)).Str("camera_id", cameraID).Msg("Threat level changed")
		p.persistThreatLevel(ctx, level)
	}
	if len(detections) > 0 {
		p.markDirty()
	}

	annotated := p.deps.Detector.Annotate(frame, detections)
	jpeg, encErr := p.deps.Encoder.Encode(annotated, p.cfg.OutputQuality)
	if encErr != nil {
		p.logger.Warn().Err(encErr).Str("camera_id", cameraID).Msg("Failed to encode frame")
	}

	if len(detections) > 0 {
		p.maybeEmit(ctx, cameraID, labels, level, jpeg)
	}

	if encErr == nil {
		p.deps.Publisher.Publish(jpeg)
	}
}

func (p *Pipeline) maybeEmit(ctx context.Context, cameraID string, labels []string, level models.ThreatLevel, snapshot []byte) {
	now := p.clock()
	key := models.AlertCooldownKey{CameraID: cameraID, Labels: labels}.String()
	if !p.deps.Cooldown.ShouldEmit(key, now) {
		p.deps.Metrics.AlertsSuppressed.Add(1)
		return
	}

	_, err := p.deps.Alerts.Emit(ctx, postprocessing.EmitRequest{
		CameraID:   cameraID,
		CameraName: p.cameraName(ctx, cameraID),
		Labels:     labels,
		Level:      level,
		Snapshot:   snapshot,
		At:         now,
	})
	if err != nil {
		p.deps.Metrics.PersistFailures.Add(1)
		p.logger.Warn().Err(err).Str("camera_id", cameraID).Msg("Alert persistence failed")
		return
	}
	p.deps.Metrics.AlertsEmitted.Add(1)
}

func (p *Pipeline) cameraName(ctx context.Context, cameraID string) string {
	cam, err := p.deps.Store.GetCamera(ctx, cameraID)
	if err != nil || cam == nil || cam.Name == "" {
		return unknownCamera
	}
	return cam.Name
}

func (p *Pipeline) sweepCooldown() {
	now := p.clock()
	if now.Sub(p.lastSweep) < p.deps.Cooldown.Window() {
		return
	}
	p.lastSweep = now
	if removed := p.deps.Cooldown.Evict(now, p.evictMaxAge); removed > 0 {
		p.logger.Debug().Int("removed", removed).Msg("Evicted expired cooldown entries")
	}
}

// ReportStatus receives connect and staleness transitions from connections.
// Reports from anything but the active connection are ignored.
func (p *Pipeline) ReportStatus(conn *streamcapture.Connection, status models.SystemStatus) {
	prev, applied := p.state.setStatusFrom(conn, status)
	if !applied {
		return
	}
	if prev == models.SystemStatusOffline && status == models.SystemStatusRunning {
		p.deps.Metrics.Reconnects.Add(1)
	}
	p.logger.Info().
		Str("camera_id", conn.CameraID()).
		Str("from", string(prev)).
		Str("to", string(status)).
		Msg("System status changed")
	p.markDirty()
}

func (p *Pipeline) persistThreatLevel(ctx context.Context, level models.ThreatLevel) {
	err := p.deps.Store.MergeSetting(ctx, models.SettingThreatConfig, map[string]any{
		"threat_level": string(level),
		"level":        string(level),
		"timestamp":    p.clock().UTC(),
	})
	if err != nil {
		p.deps.Metrics.PersistFailures.Add(1)
		p.logger.Warn().Err(err).Msg("Failed to persist threat level")
	}
}

// markDirty schedules a system_status write; pending writes coalesce
func (p *Pipeline) markDirty() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

func (p *Pipeline) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.dirty:
			p.persistStatus(ctx)
		}
	}
}

func (p *Pipeline) persistStatus(ctx context.Context) {
	snap := p.state.Snapshot()
	err := p.deps.Store.MergeSetting(ctx, models.SettingSystemStatus, map[string]any{
		"status":               string(snap.Status),
		"threat_level":         string(snap.ThreatLevel),
		"current_camera_id":    snap.ActiveCameraID,
		"total_detections":     snap.TotalDetections,
		"last_object_detected": snap.LastObjectDetected,
		"timestamp":            p.clock().UTC(),
	})
	if err != nil {
		p.deps.Metrics.PersistFailures.Add(1)
		p.logger.Warn().Err(err).Msg("Failed to persist system status")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
