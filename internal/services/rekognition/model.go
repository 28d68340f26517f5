package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"vigil-worker-go/internal/models"
)

// DetectLabelsAPI is the subset of the Rekognition client used here
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Encoder turns a raw frame into JPEG bytes
type Encoder interface {
	Encode(frame *models.RawFrame, quality int) ([]byte, error)
}

// Config holds Rekognition settings
type Config struct {
	Region        string
	MinConfidence float32 // percent, 0-100
	MaxLabels     int32
}

// Model detects objects with Rekognition DetectLabels. Only labels that come
// with instance bounding boxes become detections.
type Model struct {
	api     DetectLabelsAPI
	encoder Encoder
	config  Config
}

// NewModel creates a model using the AWS default credential chain
func NewModel(ctx context.Context, cfg Config, encoder Encoder) (*Model, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewModelWithAPI(rekognition.NewFromConfig(awsCfg), cfg, encoder), nil
}

// NewModelWithAPI creates a model around an existing client
func NewModelWithAPI(api DetectLabelsAPI, cfg Config, encoder Encoder) *Model {
	if cfg.MaxLabels <= 0 {
		cfg.MaxLabels = 20
	}
	return &Model{api: api, encoder: encoder, config: cfg}
}

func (m *Model) Name() string { return "rekognition" }

// Infer sends the frame to Rekognition
func (m *Model) Infer(ctx context.Context, frame *models.RawFrame) ([]models.Detection, error) {
	jpeg, err := m.encoder.Encode(frame, 90)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	out, err := m.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: jpeg},
		MinConfidence: aws.Float32(m.config.MinConfidence),
		MaxLabels:     aws.Int32(m.config.MaxLabels),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	var detections []models.Detection
	for _, label := range out.Labels {
		name := aws.ToString(label.Name)
		for _, inst := range label.Instances {
			if inst.BoundingBox == nil {
				continue
			}
			detections = append(detections, models.Detection{
				Label:      name,
				Confidence: aws.ToFloat32(inst.Confidence) / 100,
				Box:        toPixels(inst.BoundingBox, frame.Width, frame.Height),
			})
		}
	}
	return detections, nil
}

// toPixels converts a ratio box to pixel coordinates
func toPixels(b *types.BoundingBox, width, height int) models.BoundingBox {
	left := aws.ToFloat32(b.Left) * float32(width)
	top := aws.ToFloat32(b.Top) * float32(height)
	return models.BoundingBox{
		X1: left,
		Y1: top,
		X2: left + aws.ToFloat32(b.Width)*float32(width),
		Y2: top + aws.ToFloat32(b.Height)*float32(height),
	}
}
