package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/api/handlers"
	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/pipeline"
	"vigil-worker-go/internal/services/threat"
	"vigil-worker-go/internal/store/memory"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeState struct {
	mu   sync.Mutex
	snap models.SystemSnapshot
}

func (s *fakeState) Snapshot() models.SystemSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeState) SetThreatLevel(level models.ThreatLevel) {
	s.mu.Lock()
	s.snap.ThreatLevel = level
	s.mu.Unlock()
}

type fakeActivator struct {
	activateErr error
	ensureErr   error
	activated   []string
}

func (a *fakeActivator) Activate(_ context.Context, camera *models.Camera) error {
	a.activated = append(a.activated, camera.ID)
	return a.activateErr
}

func (a *fakeActivator) EnsureActive(context.Context) error {
	return a.ensureErr
}

type fakeModel bool

func (m fakeModel) ModelLoaded() bool { return bool(m) }

type harness struct {
	store     *memory.Store
	state     *fakeState
	activator *fakeActivator
	vocab     *threat.Classifier
	handler   http.Handler
}

func newHarness(t *testing.T, model bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		store: memory.New(),
		state: &fakeState{snap: models.SystemSnapshot{
			Status:             models.SystemStatusRunning,
			ThreatLevel:        models.ThreatLevelLow,
			LastObjectDetected: models.NoObjectDetected,
		}},
		activator: &fakeActivator{},
		vocab:     threat.NewClassifier(threat.Vocabulary{High: []string{"gun", "knife"}, Notable: []string{"person"}}),
	}

	cfg := &config.Config{Version: "test", Environment: "test", WorkerID: "worker-1", Port: 0}
	srv := NewServer(cfg, Deps{
		Store:      h.store,
		State:      h.state,
		Activator:  h.activator,
		Model:      fakeModel(model),
		Vocabulary: h.vocab,
		Stream: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
			_, _ = w.Write([]byte("--frame\r\n"))
		}),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("vigil_frames_read_total 0\n"))
		}),
		Clock: func() time.Time { return testNow },
	})
	h.handler = srv.Handler()
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (h *harness) addCamera(t *testing.T, cam models.Camera) models.Camera {
	t.Helper()
	require.NoError(t, h.store.CreateCamera(context.Background(), &cam))
	return cam
}

func (h *harness) latestLog(t *testing.T) models.ActivityLog {
	t.Helper()
	logs, err := h.store.ListActivityLogs(context.Background(), models.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	return logs[0]
}

func TestHealth(t *testing.T) {
	t.Run("offline without an open source", func(t *testing.T) {
		h := newHarness(t, true)
		w := h.do(t, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[handlers.HealthResponse](t, w)
		assert.Equal(t, "offline", resp.Status)
		assert.False(t, resp.VideoStreamActive)
		assert.True(t, resp.StoreConnected)
		assert.Equal(t, "worker-1", resp.WorkerID)
	})

	t.Run("degraded without a model", func(t *testing.T) {
		h := newHarness(t, false)
		h.state.snap.SourceOpen = true

		resp := decode[handlers.HealthResponse](t, h.do(t, http.MethodGet, "/health", nil))
		assert.Equal(t, "degraded", resp.Status)
		assert.False(t, resp.ModelLoaded)
	})

	t.Run("healthy", func(t *testing.T) {
		h := newHarness(t, true)
		h.state.snap.SourceOpen = true
		h.state.snap.ActiveCameraID = "cam-1"

		resp := decode[handlers.HealthResponse](t, h.do(t, http.MethodGet, "/api/health", nil))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "cam-1", resp.CurrentCameraID)
		assert.True(t, testNow.Equal(resp.Timestamp))
	})
}

func TestWorkerInfo(t *testing.T) {
	h := newHarness(t, true)
	resp := decode[handlers.WorkerInfoResponse](t, h.do(t, http.MethodGet, "/", nil))
	assert.Equal(t, "worker-1", resp.WorkerID)
	assert.Equal(t, "running", resp.Status)
	assert.Contains(t, resp.Capabilities, "object_detection")
}

func TestCameras_Add(t *testing.T) {
	h := newHarness(t, true)

	w := h.do(t, http.MethodPost, "/api/cameras", map[string]string{"name": "Gate"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Camera name and RTSP URL are required", decode[handlers.ErrorResponse](t, w).Error)

	w = h.do(t, http.MethodPost, "/api/cameras",
		map[string]string{"name": " Gate ", "rtspUrl": "rtsp://10.0.0.5/stream"},
		"X-User-ID", "op-7", "X-User-Role", "admin")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[handlers.CameraResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Camera added successfully.", resp.Message)
	require.NotNil(t, resp.Camera)
	assert.Equal(t, "Gate", resp.Camera.Name)
	assert.Equal(t, models.CameraStatusActive, resp.Camera.Status)
	assert.NotEmpty(t, resp.Camera.ID)

	entry := h.latestLog(t)
	assert.Equal(t, "op-7", entry.UserID)
	assert.Equal(t, "admin", entry.Role)
	assert.Equal(t, "New camera 'Gate' added with RTSP: rtsp://10.0.0.5/stream", entry.Message)
	assert.Equal(t, "Unknown", entry.Camera)
	assert.Equal(t, models.ThreatLevelLow, entry.ThreatLevel)
	assert.Equal(t, "verified", entry.Status)

	cams := decode[[]models.Camera](t, h.do(t, http.MethodGet, "/api/cameras", nil))
	assert.Len(t, cams, 1)
}

func TestCameras_UpdateAndDelete(t *testing.T) {
	h := newHarness(t, true)
	def := h.addCamera(t, models.Camera{Name: "Default Webcam", Source: "0", IsDefault: true})
	other := h.addCamera(t, models.Camera{Name: "Gate", Source: "rtsp://gate"})

	w := h.do(t, http.MethodPut, "/api/cameras/"+other.ID, map[string]string{"status": "broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPut, "/api/cameras/missing", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPut, "/api/cameras/"+other.ID, map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := h.store.GetCamera(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CameraStatusInactive, got.Status)

	w = h.do(t, http.MethodDelete, "/api/cameras/"+def.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot delete default camera", decode[handlers.ErrorResponse](t, w).Error)

	w = h.do(t, http.MethodDelete, "/api/cameras/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodDelete, "/api/cameras/"+other.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Camera 'Gate' deleted", h.latestLog(t).Message)
}

func TestCameras_Activate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{name: "switched", code: http.StatusOK, message: "Switched to camera: Gate"},
		{name: "superseded", err: pipeline.ErrSuperseded, code: http.StatusConflict, message: "Camera switch superseded by a newer request"},
		{name: "connect failed", err: fmt.Errorf("%w: cam", pipeline.ErrConnectFailed), code: http.StatusInternalServerError, message: "Failed to connect to camera"},
		{name: "other failure", err: errors.New("boom"), code: http.StatusInternalServerError, message: "Failed to activate camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			cam := h.addCamera(t, models.Camera{Name: "Gate", Source: "rtsp://gate"})
			h.activator.activateErr = tt.err

			w := h.do(t, http.MethodPost, "/api/cameras/"+cam.ID+"/activate", nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, []string{cam.ID}, h.activator.activated)

			if tt.err == nil {
				assert.Equal(t, tt.message, decode[handlers.SuccessResponse](t, w).Message)
				assert.Equal(t, "Gate", h.latestLog(t).Camera)
			} else {
				assert.Equal(t, tt.message, decode[handlers.ErrorResponse](t, w).Error)
			}
		})
	}

	t.Run("unknown camera", func(t *testing.T) {
		h := newHarness(t, true)
		w := h.do(t, http.MethodPost, "/api/cameras/missing/activate", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, h.activator.activated)
	})
}

func TestAlerts_Update(t *testing.T) {
	h := newHarness(t, true)
	alert := &models.Alert{
		CameraName:  "Cam-1",
		CameraID:    "cam-1",
		Detections:  []string{"gun", "person"},
		ThreatLevel: models.ThreatLevelHigh,
		Status:      models.AlertStatusUnverified,
		Timestamp:   testNow.Add(-time.Minute),
	}
	require.NoError(t, h.store.CreateAlert(context.Background(), alert))

	w := h.do(t, http.MethodPut, "/api/alert/"+alert.ID, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status", decode[handlers.ErrorResponse](t, w).Error)

	w = h.do(t, http.MethodPut, "/api/alert/missing", map[string]string{"status": "verified"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Alert not found", decode[handlers.ErrorResponse](t, w).Error)

	w = h.do(t, http.MethodPut, "/api/alert/"+alert.ID, map[string]string{"status": "verified"}, "X-User-ID", "op-7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alert verified successfully", decode[handlers.SuccessResponse](t, w).Message)

	stored, err := h.store.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusVerified, stored.Status)
	assert.Equal(t, "op-7", stored.UpdatedBy)

	entry := h.latestLog(t)
	assert.Equal(t, "Alert verified - gun, person detected on Cam-1", entry.Message)
	assert.Equal(t, "Cam-1", entry.Camera)
	assert.Equal(t, models.ThreatLevelHigh, entry.ThreatLevel)
	assert.Equal(t, []string{"gun", "person"}, entry.Detections)

	w = h.do(t, http.MethodPut, "/api/alert/"+alert.ID, map[string]string{"status": "dismissed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alert dismissed - ID: "+alert.ID, h.latestLog(t).Message)
	assert.Equal(t, "anonymous", h.latestLog(t).UserID)
}

func TestAlerts_List(t *testing.T) {
	h := newHarness(t, true)
	for i := 0; i < 8; i++ {
		status := models.AlertStatusUnverified
		if i%2 == 0 {
			status = models.AlertStatusVerified
		}
		require.NoError(t, h.store.CreateAlert(context.Background(), &models.Alert{
			CameraID:  "cam-1",
			Status:    status,
			Timestamp: testNow.Add(time.Duration(i) * time.Minute),
		}))
	}

	all := decode[[]models.Alert](t, h.do(t, http.MethodGet, "/api/alerts", nil))
	assert.Len(t, all, 8)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

	verified := decode[[]models.Alert](t, h.do(t, http.MethodGet, "/api/alerts?status=verified&limit=3", nil))
	assert.Len(t, verified, 3)
	for _, a := range verified {
		assert.Equal(t, models.AlertStatusVerified, a.Status)
	}

	recent := decode[[]models.Alert](t, h.do(t, http.MethodGet, "/api/recent_alerts", nil))
	assert.Len(t, recent, 5)

	recent = decode[[]models.Alert](t, h.do(t, http.MethodGet, "/api/recent_alerts?limit=bogus", nil))
	assert.Len(t, recent, 5)
}

func TestSystemStatus(t *testing.T) {
	h := newHarness(t, true)
	h.addCamera(t, models.Camera{Name: "Default Webcam", Source: "0", IsDefault: true})
	h.addCamera(t, models.Camera{Name: "Gate", Source: "rtsp://gate", Status: models.CameraStatusInactive})
	for _, at := range []time.Time{testNow.Add(-time.Hour), testNow.Add(-11 * time.Hour), testNow.Add(-13 * time.Hour)} {
		require.NoError(t, h.store.CreateAlert(context.Background(), &models.Alert{CameraID: "cam-1", Timestamp: at}))
	}
	h.state.snap.TotalDetections = 42
	h.state.snap.LastObjectDetected = "person"

	w := h.do(t, http.MethodGet, "/api/system_status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.SystemStatusResponse](t, w)
	assert.Equal(t, models.SystemStatusRunning, resp.Status)
	assert.Equal(t, 2, resp.AlertsToday)
	assert.Equal(t, "1/2", resp.CamerasActive)
	assert.Equal(t, 1, resp.ActiveCameras)
	assert.Equal(t, 2, resp.TotalCameras)
	assert.Equal(t, int64(42), resp.TotalDetections)
	assert.Equal(t, "person", resp.LastObjectDetected)
}

func TestThreatConfig(t *testing.T) {
	h := newHarness(t, true)

	cfg := decode[models.ThreatConfig](t, h.do(t, http.MethodGet, "/api/threat_config", nil))
	assert.Equal(t, models.ThreatLevelLow, cfg.ThreatLevel)
	assert.Equal(t, models.DefaultMonitoredObjects, cfg.MonitoredObjects)
	assert.Equal(t, []string{"gun", "knife"}, cfg.HighLabels)

	w := h.do(t, http.MethodPost, "/api/threat_config", map[string]string{"threat_level": "Extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ThreatLevelLow, h.state.Snapshot().ThreatLevel)

	w = h.do(t, http.MethodPost, "/api/threat_config", map[string]any{
		"level":             "High",
		"monitored_objects": []string{"gun"},
		"high_labels":       []string{"Gun", "rifle"},
	}, "X-User-ID", "op-7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ThreatLevelHigh, h.state.Snapshot().ThreatLevel)
	assert.Equal(t, []string{"gun", "rifle"}, h.vocab.Vocabulary().High)
	assert.Equal(t, []string{"person"}, h.vocab.Vocabulary().Notable)
	assert.Equal(t, "Threat config updated. New level: High", h.latestLog(t).Message)

	cfg = decode[models.ThreatConfig](t, h.do(t, http.MethodGet, "/api/threat_config", nil))
	assert.Equal(t, models.ThreatLevelHigh, cfg.ThreatLevel)
	assert.Equal(t, models.ThreatLevelHigh, cfg.Level)
	assert.Equal(t, []string{"gun"}, cfg.MonitoredObjects)
	assert.Equal(t, []string{"gun", "rifle"}, cfg.HighLabels)
	assert.Equal(t, "op-7", cfg.UpdatedBy)
}

func TestActivityLogs(t *testing.T) {
	h := newHarness(t, true)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.store.AppendActivityLog(context.Background(), &models.ActivityLog{
			Message:   fmt.Sprintf("entry %d", i),
			Status:    "verified",
			Timestamp: testNow.Add(time.Duration(i) * time.Second),
		}))
	}

	logs := decode[[]models.ActivityLog](t, h.do(t, http.MethodGet, "/api/activity_logs?limit=2", nil))
	require.Len(t, logs, 2)
	assert.Equal(t, "entry 2", logs[0].Message)
}

func TestVideoFeed(t *testing.T) {
	t.Run("no camera", func(t *testing.T) {
		h := newHarness(t, true)
		h.activator.ensureErr = pipeline.ErrNoCamera

		w := h.do(t, http.MethodGet, "/video_feed", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "No active cameras available", w.Body.String())
	})

	t.Run("streams while the camera reconnects", func(t *testing.T) {
		h := newHarness(t, true)
		h.activator.ensureErr = fmt.Errorf("%w: cam-1", pipeline.ErrConnectFailed)

		w := h.do(t, http.MethodGet, "/video_feed", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", w.Header().Get("Content-Type"))
	})
}

func TestMiddleware(t *testing.T) {
	h := newHarness(t, true)

	w := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vigil_frames_read_total")

	w = h.do(t, http.MethodGet, "/", nil, "X-Request-ID", "req-1")
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = h.do(t, http.MethodGet, "/", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
