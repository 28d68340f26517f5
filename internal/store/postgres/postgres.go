// Package postgres is the PostgreSQL-backed Store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/store"
)

// DB is the subset of pgxpool.Pool used by the store (pgxmock compatible)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	db  DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects a pool to dsn and verifies it
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewWithDB(pool), nil
}

// NewWithDB creates a store over an existing handle
func NewWithDB(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Cameras

const cameraColumns = `id, name, source, rtsp_url, status, is_active, is_default, created_at, updated_at`

func scanCamera(row scanner) (*models.Camera, error) {
	var c models.Camera
	var status string
	if err := row.Scan(&c.ID, &c.Name, &c.Source, &c.RTSPURL, &status, &c.IsActive, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = models.CameraStatus(status)
	return &c, nil
}

func (s *Store) ListCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := s.db.Query(ctx, `SELECT `+cameraColumns+` FROM cameras ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	cameras := []models.Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, *c)
	}
	return cameras, rows.Err()
}

func (s *Store) GetCamera(ctx context.Context, id string) (*models.Camera, error) {
	c, err := scanCamera(s.db.QueryRow(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Store) CreateCamera(ctx context.Context, camera *models.Camera) error {
	if camera.ID == "" {
		camera.ID = uuid.NewString()
	}
	if camera.CreatedAt.IsZero() {
		camera.CreatedAt = s.now().UTC()
	}
	if camera.Status == "" {
		camera.Status = models.CameraStatusActive
		camera.IsActive = true
	}

	query := `
		INSERT INTO cameras (id, name, source, rtsp_url, status, is_active, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		camera.ID, camera.Name, camera.Source, camera.RTSPURL, string(camera.Status),
		camera.IsActive, camera.IsDefault, camera.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create camera: %w", err)
	}
	return nil
}

func (s *Store) UpdateCamera(ctx context.Context, id string, update models.CameraUpdate) (*models.Camera, error) {
	var status *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}

	query := `
		UPDATE cameras SET
			name       = COALESCE($2, name),
			rtsp_url   = COALESCE($3, rtsp_url),
			source     = COALESCE($3, source),
			status     = COALESCE($4, status),
			is_active  = COALESCE($4 = 'active', is_active),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + cameraColumns

	c, err := scanCamera(s.db.QueryRow(ctx, query, id, update.Name, update.RTSPURL, status, s.now().UTC()))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Store) DeleteCamera(ctx context.Context, id string) error {
	var isDefault bool
	if err := s.db.QueryRow(ctx, `SELECT is_default FROM cameras WHERE id = $1`, id).Scan(&isDefault); err != nil {
		return notFound(err)
	}
	if isDefault {
		return store.ErrDefaultCamera
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM cameras WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete camera: %w", err)
	}
	return nil
}

func (s *Store) DefaultCamera(ctx context.Context) (*models.Camera, error) {
	query := `
		SELECT ` + cameraColumns + `
		FROM cameras
		WHERE is_default OR is_active
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1
	`
	c, err := scanCamera(s.db.QueryRow(ctx, query))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// Alerts

const alertColumns = `id, camera_id, camera_name, detections, threat_level, status, snapshot_url, detected_at, updated_by, updated_at`

func scanAlert(row scanner) (*models.Alert, error) {
	var a models.Alert
	var level, status string
	err := row.Scan(&a.ID, &a.CameraID, &a.CameraName, &a.Detections, &level, &status,
		&a.SnapshotURL, &a.Timestamp, &a.UpdatedBy, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ThreatLevel = models.ThreatLevel(level)
	a.Status = models.AlertStatus(status)
	return &a, nil
}

func (s *Store) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	query := `
		INSERT INTO alerts (id, camera_id, camera_name, detections, threat_level, status, snapshot_url, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		alert.ID, alert.CameraID, alert.CameraName, alert.Detections,
		string(alert.ThreatLevel), string(alert.Status), alert.SnapshotURL, alert.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) ListAlerts(ctx context.Context, filter models.ListFilter) ([]models.Alert, error) {
	query, args := listQuery(`SELECT `+alertColumns+` FROM alerts`, "detected_at", filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus, updatedBy string, at time.Time) (*models.Alert, error) {
	query := `
		UPDATE alerts SET status = $2, updated_by = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + alertColumns

	a, err := scanAlert(s.db.QueryRow(ctx, query, id, string(status), updatedBy, at))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) CountAlertsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE detected_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// Activity logs

func (s *Store) AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO activity_logs (id, user_id, role, message, camera, detections, threat_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Role, entry.Message, entry.Camera, entry.Detections,
		string(entry.ThreatLevel), entry.Status, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

func (s *Store) ListActivityLogs(ctx context.Context, filter models.ListFilter) ([]models.ActivityLog, error) {
	query, args := listQuery(
		`SELECT id, user_id, role, message, camera, detections, threat_level, status, created_at FROM activity_logs`,
		"created_at", filter,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		var level string
		if err := rows.Scan(&l.ID, &l.UserID, &l.Role, &l.Message, &l.Camera, &l.Detections, &level, &l.Status, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		l.ThreatLevel = models.ThreatLevel(level)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// listQuery appends the status filter, newest-first ordering and limit
func listQuery(base, orderBy string, filter models.ListFilter) (string, []any) {
	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	if filter.MatchesStatus("") {
		return base + ` ORDER BY ` + orderBy + ` DESC LIMIT $1`, []any{limit}
	}
	return base + ` WHERE status = $1 ORDER BY ` + orderBy + ` DESC LIMIT $2`, []any{filter.Status, limit}
}

// Settings

func (s *Store) MergeSetting(ctx context.Context, key string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}

	query := `
		INSERT INTO settings (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET data = settings.data || EXCLUDED.data, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("merge setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (map[string]any, error) {
	var data []byte
	if err := s.db.QueryRow(ctx, `SELECT data FROM settings WHERE key = $1`, key).Scan(&data); err != nil {
		return nil, notFound(err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal setting %s: %w", key, err)
	}
	return doc, nil
}
