package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/store"
)

func TestBootstrap_SeedsDefaults(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.Bootstrap(ctx, s, now))
	require.NoError(t, store.Bootstrap(ctx, s, now))

	cams, err := s.ListCameras(ctx)
	require.NoError(t, err)
	require.Len(t, cams, 1)
	assert.Equal(t, "Default Webcam", cams[0].Name)
	assert.True(t, cams[0].IsDefault)
	assert.Equal(t, "0", cams[0].SourceOrDefault())

	status, err := s.GetSetting(ctx, models.SettingSystemStatus)
	require.NoError(t, err)
	assert.Equal(t, "starting", status["status"])
	assert.Equal(t, "N/A", status["last_object_detected"])

	threat, err := s.GetSetting(ctx, models.SettingThreatConfig)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMonitoredObjects, threat["monitored_objects"])
}

func TestBootstrap_KeepsExistingThreatConfig(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.MergeSetting(ctx, models.SettingThreatConfig, map[string]any{
		"monitored_objects": []string{"gun"},
	}))

	require.NoError(t, store.Bootstrap(ctx, s, time.Now()))

	threat, err := s.GetSetting(ctx, models.SettingThreatConfig)
	require.NoError(t, err)
	assert.Equal(t, []string{"gun"}, threat["monitored_objects"])
}

func TestStore_DefaultCameraFallsBackToFirstActive(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.DefaultCamera(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	inactive := &models.Camera{Name: "Lobby", Source: "rtsp://lobby", Status: models.CameraStatusInactive}
	active := &models.Camera{Name: "Dock", Source: "rtsp://dock", Status: models.CameraStatusActive, IsActive: true}
	require.NoError(t, s.CreateCamera(ctx, inactive))
	require.NoError(t, s.CreateCamera(ctx, active))

	cam, err := s.DefaultCamera(ctx)
	require.NoError(t, err)
	assert.Equal(t, active.ID, cam.ID)
}

func TestStore_CameraLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	cam := &models.Camera{Name: "Gate", RTSPURL: "rtsp://gate", Source: "rtsp://gate"}
	require.NoError(t, s.CreateCamera(ctx, cam))
	assert.NotEmpty(t, cam.ID)
	assert.True(t, cam.IsActive)

	name := "Main Gate"
	inactive := models.CameraStatusInactive
	updated, err := s.UpdateCamera(ctx, cam.ID, models.CameraUpdate{Name: &name, Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Main Gate", updated.Name)
	assert.False(t, updated.IsActive)
	assert.NotNil(t, updated.UpdatedAt)

	require.NoError(t, s.DeleteCamera(ctx, cam.ID))
	_, err = s.GetCamera(ctx, cam.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCamera(ctx, cam.ID), store.ErrNotFound)

	def := &models.Camera{Name: "Default", Source: "0", IsDefault: true}
	require.NoError(t, s.CreateCamera(ctx, def))
	assert.ErrorIs(t, s.DeleteCamera(ctx, def.ID), store.ErrDefaultCamera)
}

func TestStore_AlertsNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []models.AlertStatus{models.AlertStatusUnverified, models.AlertStatusVerified, models.AlertStatusUnverified} {
		require.NoError(t, s.CreateAlert(ctx, &models.Alert{
			ID:        string(rune('a' + i)),
			Status:    status,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListAlerts(ctx, models.ListFilter{Status: "all"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	unverified, err := s.ListAlerts(ctx, models.ListFilter{Status: "unverified", Limit: 1})
	require.NoError(t, err)
	require.Len(t, unverified, 1)
	assert.Equal(t, "c", unverified[0].ID)

	n, err := s.CountAlertsSince(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated, err := s.UpdateAlertStatus(ctx, "a", models.AlertStatusDismissed, "op-1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusDismissed, updated.Status)
	assert.Equal(t, "op-1", updated.UpdatedBy)

	_, err = s.UpdateAlertStatus(ctx, "missing", models.AlertStatusVerified, "op-1", base)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_MergeSettingPreservesFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.MergeSetting(ctx, "doc", map[string]any{"a": 1, "b": 2}))
	require.NoError(t, s.MergeSetting(ctx, "doc", map[string]any{"b": 3}))

	doc, err := s.GetSetting(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, doc)

	_, err = s.GetSetting(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
