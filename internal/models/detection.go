package models

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ThreatLevel is the coarse severity derived from one frame's labels
type ThreatLevel string

const (
	ThreatLevelLow  ThreatLevel = "Low"
	ThreatLevelHigh ThreatLevel = "High"
)

// ParseThreatLevel accepts any casing of a known level
func ParseThreatLevel(s string) (ThreatLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ThreatLevelLow, true
	case "high":
		return ThreatLevelHigh, true
	default:
		return "", false
	}
}

// BoundingBox is in pixel coordinates of the source frame
type BoundingBox struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// Detection is one labeled, scored object found in a frame
type Detection struct {
	Label      string      `json:"label"`
	Confidence float32     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// NormalizeLabel lower-cases a model label and replaces spaces with underscores
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// Labels returns the labels of the detections in model order
func Labels(detections []Detection) []string {
	return lo.Map(detections, func(d Detection, _ int) string { return d.Label })
}

// SortedUniqueLabels returns the distinct labels in lexical order
func SortedUniqueLabels(labels []string) []string {
	out := lo.Uniq(labels)
	sort.Strings(out)
	return out
}

// AlertCooldownKey identifies repeated alerts for the same camera and label set
type AlertCooldownKey struct {
	CameraID string
	Labels   []string
}

// String returns a string representation of the cooldown key
func (k AlertCooldownKey) String() string {
	return k.CameraID + "_" + strings.Join(SortedUniqueLabels(k.Labels), "-")
}

// MessagePublisher interface for publishing alerts
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
