package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

var (
	highColor    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	notableColor = color.RGBA{R: 255, G: 191, B: 0, A: 255}
	normalColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelBgColor = color.RGBA{R: 0, G: 0, B: 0, A: 180}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Overlay draws detection boxes and labels onto frames
type Overlay struct {
	// IsHigh and IsNotable select the box colour for a label. High wins when
	// both match; nil predicates never match.
	IsHigh    func(label string) bool
	IsNotable func(label string) bool
}

func NewOverlay(isHigh, isNotable func(label string) bool) *Overlay {
	return &Overlay{IsHigh: isHigh, IsNotable: isNotable}
}

func (r *Overlay) boxColor(label string) color.RGBA {
	switch {
	case r.IsHigh != nil && r.IsHigh(label):
		return highColor
	case r.IsNotable != nil && r.IsNotable(label):
		return notableColor
	default:
		return normalColor
	}
}

// Draw returns a copy of the frame with the detections drawn on it. The
// input frame is left untouched.
func (r *Overlay) Draw(frame *models.RawFrame, detections []models.Detection) *models.RawFrame {
	if frame.Empty() || len(detections) == 0 {
		return frame
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		log.Warn().Err(err).Str("camera_id", frame.CameraID).Msg("Failed to create Mat for overlay")
		return frame
	}
	defer src.Close()

	mat := src.Clone()
	defer mat.Close()

	for _, det := range detections {
		drawDetection(&mat, det, r.boxColor(det.Label))
	}

	out := *frame
	out.Data = mat.ToBytes()
	return &out
}

func drawDetection(mat *gocv.Mat, det models.Detection, boxColor color.RGBA) {
	x1, y1 := int(det.Box.X1), int(det.Box.Y1)
	x2, y2 := int(det.Box.X2), int(det.Box.Y2)

	gocv.Rectangle(mat, image.Rect(x1, y1, x2, y2), boxColor, 2)

	// corner accents
	corner := min((x2-x1)/5, (y2-y1)/5, 20)
	if corner > 0 {
		gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+corner, y1), boxColor, 4)
		gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+corner), boxColor, 4)
		gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-corner, y2), boxColor, 4)
		gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-corner), boxColor, 4)
	}

	label := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
	drawText(mat, label, x1+5, max(y1-8, 18))
}

// drawText draws text with a background
func drawText(mat *gocv.Mat, text string, x, y int) {
	fontFace := gocv.FontHersheySimplex
	fontScale := 0.6
	thickness := 2

	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)
	gocv.Rectangle(mat, image.Rect(x-5, y-textSize.Y-5, x+textSize.X+5, y+5), labelBgColor, -1)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}
