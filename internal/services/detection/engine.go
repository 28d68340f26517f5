package detection

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/models"
)

// Model is a black-box detector
type Model interface {
	Name() string
	Infer(ctx context.Context, frame *models.RawFrame) ([]models.Detection, error)
}

// Renderer draws detections onto a copy of a frame
type Renderer interface {
	Draw(frame *models.RawFrame, detections []models.Detection) *models.RawFrame
}

// Engine wraps a model and a renderer so that neither can take the pipeline down
type Engine struct {
	model    Model
	renderer Renderer
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewEngine creates an engine. A nil model means no model is loaded and every
// frame yields no detections.
func NewEngine(model Model, renderer Renderer, timeout time.Duration) *Engine {
	name := "none"
	if model != nil {
		name = model.Name()
	}
	return &Engine{
		model:    model,
		renderer: renderer,
		timeout:  timeout,
		logger:   log.With().Str("service", "detection").Str("model", name).Logger(),
	}
}

// ModelLoaded reports whether detections can be produced
func (e *Engine) ModelLoaded() bool {
	return e.model != nil
}

// Detect runs the model on one frame. Model panics are returned as errors.
func (e *Engine) Detect(ctx context.Context, frame *models.RawFrame) (detections []models.Detection, err error) {
	if e.model == nil || frame.Empty() {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Model panicked during inference")
			detections, err = nil, fmt.Errorf("inference panic: %v", r)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.model.Infer(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return normalize(raw), nil
}

// Annotate draws detections for display. It never fails: on any problem the
// input frame is returned unchanged.
func (e *Engine) Annotate(frame *models.RawFrame, detections []models.Detection) (out *models.RawFrame) {
	if e.model == nil || e.renderer == nil || len(detections) == 0 {
		return frame
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Interface("panic", r).Msg("Renderer panicked, passing frame through")
			out = frame
		}
	}()

	if drawn := e.renderer.Draw(frame, detections); drawn != nil {
		return drawn
	}
	return frame
}

func normalize(raw []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(raw))
	for _, d := range raw {
		d.Label = models.NormalizeLabel(d.Label)
		if d.Label == "" {
			continue
		}
		d.Confidence = min(max(d.Confidence, 0), 1)
		out = append(out, d)
	}
	return out
}
