package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

// YOLOConfig configures the ONNX detector
type YOLOConfig struct {
	ModelPath           string
	Classes             []string
	InputSize           int
	ConfidenceThreshold float32
	NMSThreshold        float32
}

// YOLO runs a YOLO ONNX export through the OpenCV DNN module. The output
// tensor is expected in the [1, 4+classes, anchors] layout.
type YOLO struct {
	mu  sync.Mutex
	net gocv.Net
	cfg YOLOConfig
}

// LoadYOLO reads the model from disk
func LoadYOLO(cfg YOLOConfig) (*YOLO, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model from %s", cfg.ModelPath)
	}

	log.Info().
		Str("model_path", cfg.ModelPath).
		Int("classes", len(cfg.Classes)).
		Int("input_size", cfg.InputSize).
		Msg("YOLO model loaded")

	return &YOLO{net: net, cfg: cfg}, nil
}

func (m *YOLO) Name() string { return "yolo" }

// Infer runs inference on one frame
func (m *YOLO) Infer(ctx context.Context, frame *models.RawFrame) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame: %w", err)
	}
	defer img.Close()

	size := m.cfg.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	m.mu.Unlock()
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output tensor: %w", err)
	}

	return m.decode(data, dims[1]-4, dims[2], frame.Width, frame.Height), nil
}

func (m *YOLO) decode(data []float32, classes, anchors, width, height int) []models.Detection {
	scaleX := float32(width) / float32(m.cfg.InputSize)
	scaleY := float32(height) / float32(m.cfg.InputSize)

	var (
		boxes    []image.Rectangle
		scores   []float32
		classIDs []int
	)
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := data[(4+c)*anchors+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < m.cfg.ConfidenceThreshold {
			continue
		}

		cx, cy := data[i]*scaleX, data[anchors+i]*scaleY
		w, h := data[2*anchors+i]*scaleX, data[3*anchors+i]*scaleY
		boxes = append(boxes, image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, best)
	}
	if len(boxes) == 0 {
		return nil
	}

	keep := gocv.NMSBoxes(boxes, scores, m.cfg.ConfidenceThreshold, m.cfg.NMSThreshold)

	detections := make([]models.Detection, 0, len(keep))
	for _, idx := range keep {
		b := boxes[idx]
		detections = append(detections, models.Detection{
			Label:      m.className(classIDs[idx]),
			Confidence: scores[idx],
			Box: models.BoundingBox{
				X1: float32(max(b.Min.X, 0)),
				Y1: float32(max(b.Min.Y, 0)),
				X2: float32(min(b.Max.X, width)),
				Y2: float32(min(b.Max.Y, height)),
			},
		})
	}
	return detections
}

func (m *YOLO) className(id int) string {
	if id >= 0 && id < len(m.cfg.Classes) {
		return models.NormalizeLabel(m.cfg.Classes[id])
	}
	return fmt.Sprintf("class_%d", id)
}

func (m *YOLO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
