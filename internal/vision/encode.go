package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

// JPEGEncoder converts BGR frames to JPEG
type JPEGEncoder struct{}

func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{}
}

// Encode compresses a frame at the given quality (1-100)
func (e *JPEGEncoder) Encode(frame *models.RawFrame, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	if len(frame.Data) != frame.Width*frame.Height*3 {
		return nil, fmt.Errorf("frame size %dx%d does not match %d BGR bytes", frame.Width, frame.Height, len(frame.Data))
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from BGR data: %w", err)
	}
	defer mat.Close()

	return encodeMat(mat, quality)
}

func encodeMat(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	return buf.GetBytes(), nil
}

// Placeholder renders the frame shown to feed subscribers before the first
// real frame arrives.
func Placeholder(cameraID string) []byte {
	placeholder := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	placeholder.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&placeholder, fmt.Sprintf("Camera: %s", cameraID),
		image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&placeholder, "Initializing...",
		image.Pt(20, 220), gocv.FontHersheySimplex, 0.8, textColor, 2)

	jpeg, err := encodeMat(placeholder, 90)
	if err != nil {
		return nil
	}
	return jpeg
}
