// Package memory is an in-process Store used when no database is configured.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/store"
)

type Store struct {
	mu sync.RWMutex

	cameras     map[string]*models.Camera
	cameraOrder []string
	alerts      map[string]*models.Alert
	logs        []models.ActivityLog
	settings    map[string]map[string]any
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cameras:  make(map[string]*models.Camera),
		alerts:   make(map[string]*models.Alert),
		settings: make(map[string]map[string]any),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) ListCameras(_ context.Context) ([]models.Camera, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Camera, 0, len(s.cameraOrder))
	for _, id := range s.cameraOrder {
		out = append(out, *s.cameras[id])
	}
	return out, nil
}

func (s *Store) GetCamera(_ context.Context, id string) (*models.Camera, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cam, ok := s.cameras[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *cam
	return &c, nil
}

func (s *Store) CreateCamera(_ context.Context, camera *models.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if camera.ID == "" {
		camera.ID = uuid.NewString()
	}
	if camera.CreatedAt.IsZero() {
		camera.CreatedAt = time.Now().UTC()
	}
	if camera.Status == "" {
		camera.Status = models.CameraStatusActive
		camera.IsActive = true
	}
	c := *camera
	if _, exists := s.cameras[c.ID]; !exists {
		s.cameraOrder = append(s.cameraOrder, c.ID)
	}
	s.cameras[c.ID] = &c
	return nil
}

func (s *Store) UpdateCamera(_ context.Context, id string, update models.CameraUpdate) (*models.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cam, ok := s.cameras[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.Name != nil {
		cam.Name = *update.Name
	}
	if update.RTSPURL != nil {
		cam.RTSPURL = *update.RTSPURL
		cam.Source = *update.RTSPURL
	}
	if update.Status != nil {
		cam.Status = *update.Status
		cam.IsActive = *update.Status == models.CameraStatusActive
	}
	now := time.Now().UTC()
	cam.UpdatedAt = &now

	c := *cam
	return &c, nil
}

func (s *Store) DeleteCamera(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cam, ok := s.cameras[id]
	if !ok {
		return store.ErrNotFound
	}
	if cam.IsDefault {
		return store.ErrDefaultCamera
	}
	delete(s.cameras, id)
	s.cameraOrder = slices.DeleteFunc(s.cameraOrder, func(v string) bool { return v == id })
	return nil
}

func (s *Store) DefaultCamera(_ context.Context) (*models.Camera, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var firstActive *models.Camera
	for _, id := range s.cameraOrder {
		cam := s.cameras[id]
		if cam.IsDefault {
			c := *cam
			return &c, nil
		}
		if firstActive == nil && cam.IsActive {
			firstActive = cam
		}
	}
	if firstActive == nil {
		return nil, store.ErrNotFound
	}
	c := *firstActive
	return &c, nil
}

func (s *Store) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	a := *alert
	a.Detections = slices.Clone(alert.Detections)
	s.alerts[a.ID] = &a
	return nil
}

func (s *Store) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *Store) ListAlerts(_ context.Context, filter models.ListFilter) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if filter.MatchesStatus(string(a.Status)) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return limit(out, filter.Limit), nil
}

func (s *Store) UpdateAlertStatus(_ context.Context, id string, status models.AlertStatus, updatedBy string, at time.Time) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	a.Status = status
	a.UpdatedBy = updatedBy
	a.UpdatedAt = &at

	out := *a
	return &out, nil
}

func (s *Store) CountAlertsSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.alerts {
		if !a.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendActivityLog(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *Store) ListActivityLogs(_ context.Context, filter models.ListFilter) ([]models.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ActivityLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if filter.MatchesStatus(s.logs[i].Status) {
			out = append(out, s.logs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return limit(out, filter.Limit), nil
}

func (s *Store) MergeSetting(_ context.Context, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.settings[key]
	if !ok {
		doc = make(map[string]any, len(fields))
		s.settings[key] = doc
	}
	maps.Copy(doc, fields)
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return maps.Clone(doc), nil
}

func limit[T any](items []T, n int) []T {
	if n <= 0 {
		n = store.DefaultLimit
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
