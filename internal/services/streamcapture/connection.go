package streamcapture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/models"
)

// ErrOpenFailed is returned when a source cannot be opened
var ErrOpenFailed = errors.New("video source could not be opened")

// CaptureOptions are requested from the device after opening. Sources that
// do not support a property ignore it.
type CaptureOptions struct {
	Width  int
	Height int
	FPS    int
}

// Capture is one open handle to a video source
type Capture interface {
	Read() (*models.RawFrame, bool)
	IsOpened() bool
	Close() error
}

// Opener opens capture handles
type Opener interface {
	Open(source string, opts CaptureOptions) (Capture, error)
}

// StatusReporter receives connect and staleness transitions
type StatusReporter interface {
	ReportStatus(conn *Connection, status models.SystemStatus)
}

// Options configure a Connection
type Options struct {
	Capture        CaptureOptions
	MaxRetries     int
	StaleThreshold time.Duration
	Backoff        BackoffPolicy
	Clock          func() time.Time
	Logger         *zerolog.Logger
}

// Connection owns a single capture handle and knows how to reconnect it
type Connection struct {
	mu sync.Mutex
	// open mirrors capture != nil outside mu so status readers never wait
	// behind a blocking read
	open atomic.Bool

	cameraID string
	source   string
	opener   Opener
	reporter StatusReporter
	opts     Options
	logger   zerolog.Logger

	capture   Capture
	released  bool
	lastFrame time.Time
	failures  int
	rounds    int
	retryAt   time.Time
	frameID   int64
	reported  models.SystemStatus
}

// NewConnection creates a connection without opening it
func NewConnection(cameraID, source string, opener Opener, opts Options, reporter StatusReporter) *Connection {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = 5 * time.Second
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Connection{
		cameraID: cameraID,
		source:   source,
		opener:   opener,
		reporter: reporter,
		opts:     opts,
		logger:   logger.With().Str("camera_id", cameraID).Str("source", source).Logger(),
	}
}

func (c *Connection) CameraID() string { return c.cameraID }

// Source returns the current source identifier
func (c *Connection) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// IsOpen reports whether a handle is held. It does not wait for an
// in-flight read or connect.
func (c *Connection) IsOpen() bool {
	return c.open.Load()
}

// Connect opens the source. It returns false when the source could not be
// opened or the connection was released.
func (c *Connection) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return false
	}
	return c.connectLocked()
}

// Read attempts one frame read, reconnecting within the retry ceiling
func (c *Connection) Read() (*models.RawFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, false
	}
	now := c.opts.Clock()

	if c.capture == nil || !c.capture.IsOpened() {
		if c.failures >= c.opts.MaxRetries {
			if now.Before(c.retryAt) {
				return nil, false
			}
			// backoff window elapsed, start another bounded round
			c.failures = 0
			c.rounds++
		}

		c.failures++
		c.logger.Info().Int("attempt", c.failures).Int("max_retries", c.opts.MaxRetries).Msg("Attempting to reconnect to video source")
		if !c.connectLocked() {
			if c.failures >= c.opts.MaxRetries {
				delay := c.opts.Backoff.CalculateBackoffDelay(c.rounds)
				c.retryAt = now.Add(delay)
				c.logger.Warn().Dur("retry_in", delay).Msg("Retry ceiling reached, source stays offline")
			}
			return nil, false
		}
		return c.readOnceLocked()
	}

	if frame, ok := c.readOnceLocked(); ok {
		return frame, true
	}

	if since := now.Sub(c.lastFrame); since > c.opts.StaleThreshold {
		c.logger.Warn().Dur("since_last_frame", since).Msg("No frames received, attempting reconnection")
		c.report(models.SystemStatusOffline)
		c.connectLocked()
	}
	return nil, false
}

// SwitchSource releases the current handle and connects to a new source.
// A released connection stays released.
func (c *Connection) SwitchSource(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return false
	}
	c.closeLocked()
	c.source = source
	c.logger = c.logger.With().Str("source", source).Logger()
	c.failures = 0
	c.rounds = 0
	c.retryAt = time.Time{}
	return c.connectLocked()
}

// Release closes the handle. It is safe to call more than once and blocks
// until an in-flight read has returned.
func (c *Connection) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.closeLocked()
}

func (c *Connection) readOnceLocked() (*models.RawFrame, bool) {
	if c.capture == nil {
		return nil, false
	}
	frame, ok := c.capture.Read()
	if !ok || frame.Empty() {
		return nil, false
	}

	c.failures = 0
	c.rounds = 0
	c.lastFrame = c.opts.Clock()
	c.frameID++
	frame.CameraID = c.cameraID
	frame.FrameID = c.frameID
	if frame.Timestamp.IsZero() {
		frame.Timestamp = c.lastFrame
	}
	c.report(models.SystemStatusRunning)
	return frame, true
}

func (c *Connection) connectLocked() bool {
	c.closeLocked()

	capture, err := c.opener.Open(c.source, c.opts.Capture)
	if err != nil || capture == nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		if err == nil {
			err = ErrOpenFailed
		}
		c.logger.Error().Err(err).Msg("Failed to open video source")
		c.report(models.SystemStatusOffline)
		return false
	}

	c.capture = capture
	c.open.Store(true)
	c.failures = 0
	c.retryAt = time.Time{}
	c.lastFrame = c.opts.Clock()
	c.logger.Info().Msg("Successfully opened video source")
	c.report(models.SystemStatusRunning)
	return true
}

func (c *Connection) closeLocked() {
	c.open.Store(false)
	if c.capture == nil {
		return
	}
	if err := c.capture.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Error closing video source")
	}
	c.capture = nil
}

func (c *Connection) report(status models.SystemStatus) {
	if c.reporter == nil || c.reported == status {
		return
	}
	c.reported = status
	c.reporter.ReportStatus(c, status)
}
