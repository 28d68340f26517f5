package pipeline

import (
	"context"
	"sync"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/streamcapture"
)

// State is the process-wide system state shared by the pipeline loop and the
// HTTP handlers. One mutex guards the active connection and every field.
type State struct {
	mu sync.Mutex

	conn      *streamcapture.Connection
	cameraID  string
	status    models.SystemStatus
	level     models.ThreatLevel
	total     int64
	lastLabel string

	generation    uint64
	cancelPending context.CancelFunc
}

func NewState() *State {
	return &State{
		status:    models.SystemStatusStarting,
		level:     models.ThreatLevelLow,
		lastLabel: models.NoObjectDetected,
	}
}

// Snapshot returns a consistent copy of the state
func (s *State) Snapshot() models.SystemSnapshot {
	s.mu.Lock()
	snap := models.SystemSnapshot{
		Status:             s.status,
		ThreatLevel:        s.level,
		ActiveCameraID:     s.cameraID,
		TotalDetections:    s.total,
		LastObjectDetected: s.lastLabel,
	}
	conn := s.conn
	s.mu.Unlock()

	snap.SourceOpen = conn != nil && conn.IsOpen()
	return snap
}

// Connection returns the active connection, or nil
func (s *State) Connection() *streamcapture.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// SetThreatLevel records an administrative threat level change
func (s *State) SetThreatLevel(level models.ThreatLevel) {
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

// setStatusFrom applies a status report from conn when it is still the
// active connection. It returns the previous status and whether it applied.
func (s *State) setStatusFrom(conn *streamcapture.Connection, status models.SystemStatus) (models.SystemStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.status
	if conn == nil || conn != s.conn || prev == status {
		return prev, false
	}
	s.status = status
	return prev, true
}

// recordFrame updates the counters for one processed frame and the threat
// level. It reports whether the level changed.
func (s *State) recordFrame(detections int, lastLabel string, level models.ThreatLevel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total += int64(detections)
	if detections > 0 && lastLabel != "" {
		s.lastLabel = lastLabel
	}
	if level == s.level {
		return false
	}
	s.level = level
	return true
}

// beginSwitch starts a new switch generation and cancels the pending one
func (s *State) beginSwitch(parent context.Context) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPending != nil {
		s.cancelPending()
	}
	s.generation++
	s.cancelPending = cancel
	return s.generation, ctx
}

// commitSwitch installs conn when gen is still the latest switch and returns
// the connection it replaced.
func (s *State) commitSwitch(gen uint64, conn *streamcapture.Connection, cameraID string, connected bool) (*streamcapture.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil, ErrSuperseded
	}
	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}

	old := s.conn
	s.conn = conn
	s.cameraID = cameraID
	if connected {
		s.status = models.SystemStatusRunning
	} else {
		s.status = models.SystemStatusOffline
	}
	return old, nil
}

// abandonSwitch clears the pending cancel func of a switch that never committed
func (s *State) abandonSwitch(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation && s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
}

// detach removes the active connection and returns it
func (s *State) detach() *streamcapture.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.conn
	s.conn = nil
	s.status = models.SystemStatusOffline
	s.generation++
	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
	return conn
}
