package pipeline

import (
	"context"
	"errors"
	"fmt"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/streamcapture"
	"vigil-worker-go/internal/store"
)

// SwitchSource replaces the active connection with one for source. A newer
// call preempts this one: it returns ErrSuperseded as soon as the newer call
// starts, and its connection is released once its connect finishes. The new
// connection is installed even when its first connect fails, so reads keep
// retrying it; ErrConnectFailed is returned in that case. The replaced
// connection is released in the background so the caller never waits for an
// in-flight read.
func (p *Pipeline) SwitchSource(ctx context.Context, cameraID, source string) error {
	gen, switchCtx := p.state.beginSwitch(ctx)
	if err := switchCtx.Err(); err != nil {
		p.state.abandonSwitch(gen)
		return switchErr(ctx)
	}

	logger := logging.WithCamera(p.logger, cameraID).With().Str("source", source).Logger()
	logger.Info().Msg("Switching video source")

	conn := streamcapture.NewConnection(cameraID, source, p.deps.Opener, p.connOpts, p)
	result := make(chan bool, 1)
	go func() { result <- conn.Connect() }()

	var connected bool
	select {
	case connected = <-result:
	case <-switchCtx.Done():
		p.state.abandonSwitch(gen)
		// waits for the pending connect, then closes its handle
		go conn.Release()
		logger.Info().Msg("Camera switch preempted, releasing new source")
		return switchErr(ctx)
	}

	old, err := p.state.commitSwitch(gen, conn, cameraID, connected)
	if err != nil {
		conn.Release()
		logger.Info().Msg("Camera switch superseded, releasing new source")
		return err
	}
	if old != nil {
		go old.Release()
	}
	p.markDirty()

	if !connected {
		return fmt.Errorf("%w: %s", ErrConnectFailed, cameraID)
	}
	logger.Info().Msg("Video source switched")
	return nil
}

// switchErr tells a caller whose own context ended apart from one that lost
// to a newer switch
func switchErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSuperseded
}

// Activate switches to a registered camera
func (p *Pipeline) Activate(ctx context.Context, camera *models.Camera) error {
	return p.SwitchSource(ctx, camera.ID, camera.SourceOrDefault())
}

// EnsureActive activates the default camera when no source is active
func (p *Pipeline) EnsureActive(ctx context.Context) error {
	if p.state.Connection() != nil {
		return nil
	}

	camera, err := p.deps.Store.DefaultCamera(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoCamera
	}
	if err != nil {
		return fmt.Errorf("resolve default camera: %w", err)
	}
	return p.Activate(ctx, camera)
}
