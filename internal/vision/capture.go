package vision

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/streamcapture"
)

// ffmpegOptions are passed to the OpenCV FFmpeg backend for network sources
var ffmpegOptions = map[string]string{
	"rtsp_transport":      "tcp",
	"buffer_size":         "2097152",
	"max_delay":           "500000",
	"stimeout":            "5000000",
	"rw_timeout":          "5000000",
	"flags":               "low_delay",
	"fflags":              "nobuffer+flush_packets",
	"analyzeduration":     "500000",
	"probesize":           "2000000",
	"allowed_media_types": "video",
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "2",
}

var configureFFmpegOnce sync.Once

// configureFFmpegOptions sets the FFmpeg capture options environment variable
func configureFFmpegOptions() {
	keys := make([]string, 0, len(ffmpegOptions))
	for k := range ffmpegOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+";"+ffmpegOptions[k])
	}
	opts := strings.Join(parts, "|")

	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", opts)
	log.Info().Str("ffmpeg_options", opts).Msg("FFmpeg options configured for OpenCV")
}

// Opener opens local devices and network streams through OpenCV
type Opener struct{}

func NewOpener() *Opener {
	return &Opener{}
}

// Open opens a source. A bare integer selects a local device index, anything
// else is handed to the FFmpeg backend.
func (o *Opener) Open(source string, opts streamcapture.CaptureOptions) (streamcapture.Capture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)

	if models.IsDeviceIndex(source) {
		index, _ := strconv.Atoi(source)
		vc, err = gocv.OpenVideoCapture(index)
	} else {
		configureFFmpegOnce.Do(configureFFmpegOptions)
		vc, err = gocv.OpenVideoCaptureWithAPI(source, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %q: %w", source, streamcapture.ErrOpenFailed)
	}

	configureVideoCaptureProperties(vc, opts)

	log.Info().
		Str("source", source).
		Float64("fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened")

	return &videoCapture{vc: vc, img: gocv.NewMat()}, nil
}

// configureVideoCaptureProperties requests resolution and rate. Sources that
// do not support a property ignore it.
func configureVideoCaptureProperties(vc *gocv.VideoCapture, opts streamcapture.CaptureOptions) {
	if opts.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(opts.FPS))
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)
}

type videoCapture struct {
	vc  *gocv.VideoCapture
	img gocv.Mat
}

func (c *videoCapture) Read() (*models.RawFrame, bool) {
	if ok := c.vc.Read(&c.img); !ok || c.img.Empty() {
		return nil, false
	}
	return &models.RawFrame{
		Data:   c.img.ToBytes(),
		Width:  c.img.Cols(),
		Height: c.img.Rows(),
	}, true
}

func (c *videoCapture) IsOpened() bool {
	return c.vc.IsOpened()
}

func (c *videoCapture) Close() error {
	c.img.Close()
	return c.vc.Close()
}
