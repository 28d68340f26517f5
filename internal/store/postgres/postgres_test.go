package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock), mock
}

var cameraCols = []string{"id", "name", "source", "rtsp_url", "status", "is_active", "is_default", "created_at", "updated_at"}

var alertCols = []string{"id", "camera_id", "camera_name", "detections", "threat_level", "status", "snapshot_url", "detected_at", "updated_by", "updated_at"}

func TestStore_CreateAlert(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	alert := &models.Alert{
		CameraID:    "cam-1",
		CameraName:  "Cam-1",
		Detections:  []string{"gun", "person"},
		ThreatLevel: models.ThreatLevelHigh,
		Status:      models.AlertStatusUnverified,
		Timestamp:   at,
	}

	mock.ExpectExec("INSERT INTO alerts").
		WithArgs(pgxmock.AnyArg(), "cam-1", "Cam-1", []string{"gun", "person"}, "High", "unverified", "", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateAlert(context.Background(), alert))
	assert.NotEmpty(t, alert.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetAlertNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM alerts WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAlert(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListAlertsFiltersByStatus(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("status filter", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := pgxmock.NewRows(alertCols).
			AddRow("a1", "cam-1", "Cam-1", []string{"knife"}, "High", "verified", "", at, "op-1", (*time.Time)(nil))

		mock.ExpectQuery("FROM alerts WHERE status = \\$1 ORDER BY detected_at DESC LIMIT \\$2").
			WithArgs("verified", 10).
			WillReturnRows(rows)

		alerts, err := s.ListAlerts(context.Background(), models.ListFilter{Status: "verified", Limit: 10})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertStatusVerified, alerts[0].Status)
		assert.Equal(t, models.ThreatLevelHigh, alerts[0].ThreatLevel)
		assert.Equal(t, []string{"knife"}, alerts[0].Detections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all uses default limit", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("FROM alerts ORDER BY detected_at DESC LIMIT \\$1").
			WithArgs(store.DefaultLimit).
			WillReturnRows(pgxmock.NewRows(alertCols))

		alerts, err := s.ListAlerts(context.Background(), models.ListFilter{Status: "all"})
		require.NoError(t, err)
		assert.Empty(t, alerts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_MergeSetting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("system_status", []byte(`{"status":"running"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.MergeSetting(context.Background(), models.SettingSystemStatus, map[string]any{"status": "running"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetSetting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM settings").
		WithArgs("threat_config").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"threat_level":"High","monitored_objects":["gun"]}`)))
	mock.ExpectQuery("SELECT data FROM settings").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	doc, err := s.GetSetting(context.Background(), models.SettingThreatConfig)
	require.NoError(t, err)
	assert.Equal(t, "High", doc["threat_level"])
	assert.Equal(t, []any{"gun"}, doc["monitored_objects"])

	_, err = s.GetSetting(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DefaultCamera(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM cameras\\s+WHERE is_default OR is_active").
		WillReturnRows(pgxmock.NewRows(cameraCols).
			AddRow("def", "Default Webcam", "0", "", "active", true, true, created, (*time.Time)(nil)))

	cam, err := s.DefaultCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "def", cam.ID)
	assert.True(t, cam.IsDefault)
	assert.Equal(t, models.CameraStatusActive, cam.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteCamera(t *testing.T) {
	t.Run("default camera is protected", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT is_default FROM cameras").
			WithArgs("def").
			WillReturnRows(pgxmock.NewRows([]string{"is_default"}).AddRow(true))

		assert.ErrorIs(t, s.DeleteCamera(context.Background(), "def"), store.ErrDefaultCamera)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing camera", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT is_default FROM cameras").
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		assert.ErrorIs(t, s.DeleteCamera(context.Background(), "nope"), store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("regular camera", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT is_default FROM cameras").
			WithArgs("cam-2").
			WillReturnRows(pgxmock.NewRows([]string{"is_default"}).AddRow(false))
		mock.ExpectExec("DELETE FROM cameras").
			WithArgs("cam-2").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, s.DeleteCamera(context.Background(), "cam-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_CountAlertsSince(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM alerts").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountAlertsSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
