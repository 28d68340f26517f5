package models

import (
	"strconv"
	"time"
)

// CameraStatus represents whether a registered camera may be activated
type CameraStatus string

const (
	CameraStatusActive   CameraStatus = "active"
	CameraStatusInactive CameraStatus = "inactive"
)

// String returns the string representation of CameraStatus
func (cs CameraStatus) String() string {
	return string(cs)
}

// IsValid checks if the camera status is valid
func (cs CameraStatus) IsValid() bool {
	switch cs {
	case CameraStatusActive, CameraStatusInactive:
		return true
	default:
		return false
	}
}

// Camera is a registered video source
type Camera struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Source    string       `json:"source"`
	RTSPURL   string       `json:"rtspUrl"`
	Status    CameraStatus `json:"status"`
	IsActive  bool         `json:"is_active"`
	IsDefault bool         `json:"is_default"`
	CreatedAt time.Time    `json:"timestamp"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// SourceOrDefault returns the capture source for the camera, falling back to
// the RTSP URL and finally the local device 0.
func (c *Camera) SourceOrDefault() string {
	if c.Source != "" {
		return c.Source
	}
	if c.RTSPURL != "" {
		return c.RTSPURL
	}
	return "0"
}

// CameraRequest is the body accepted when registering a camera
type CameraRequest struct {
	Name    string `json:"name" binding:"required" example:"Entrance"`
	RTSPURL string `json:"rtspUrl" binding:"required" example:"rtsp://10.0.0.5:554/stream1"`
}

// CameraUpdate carries the optional fields of a camera update
type CameraUpdate struct {
	Name    *string       `json:"name,omitempty"`
	RTSPURL *string       `json:"rtspUrl,omitempty"`
	Status  *CameraStatus `json:"status,omitempty"`
}

// RawFrame is one decoded BGR24 image read from a source
type RawFrame struct {
	CameraID  string
	Data      []byte
	Width     int
	Height    int
	FrameID   int64
	Timestamp time.Time
}

// Empty reports whether the frame carries no pixels
func (f *RawFrame) Empty() bool {
	return f == nil || len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}

// IsDeviceIndex reports whether a source names a local capture device
func IsDeviceIndex(source string) bool {
	if source == "" {
		return false
	}
	_, err := strconv.Atoi(source)
	return err == nil
}
