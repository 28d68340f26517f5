package inference

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"vigil-worker-go/internal/models"
)

// DetectMethod is the unary RPC the remote detector serves. The request is the
// JPEG-encoded frame, the response a Struct with a "detections" list whose
// items carry label, confidence and box [x1, y1, x2, y2].
const DetectMethod = "/vigil.inference.v1.Detector/Detect"

// Encoder turns a raw frame into JPEG bytes
type Encoder interface {
	Encode(frame *models.RawFrame, quality int) ([]byte, error)
}

// Client calls a remote detector over gRPC
type Client struct {
	mu       sync.RWMutex
	conn     *grpc.ClientConn
	endpoint string
	encoder  Encoder
	quality  int

	// Retry management
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewClient prepares a client. The connection is established lazily.
func NewClient(endpoint string, encoder Encoder) *Client {
	return &Client{
		endpoint:        endpoint,
		encoder:         encoder,
		quality:         90,
		maxRetryBackoff: 30 * time.Second,
	}
}

// NewClientWithConn wraps an existing connection
func NewClientWithConn(conn *grpc.ClientConn, encoder Encoder) *Client {
	c := NewClient(conn.Target(), encoder)
	c.conn = conn
	return c
}

func (c *Client) Name() string { return "grpc" }

// Connect dials the endpoint
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	target, creds, err := parseGRPCEndpoint(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse AI endpoint %s: %w", c.endpoint, err)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("failed to connect to AI service at %s: %w", target, err)
	}
	c.conn = conn
	c.consecutiveFails = 0

	log.Info().Str("ai_endpoint", target).Msg("AI gRPC connection initialized")
	return nil
}

// HealthCheck queries the standard gRPC health service
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Connect(); err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("detection service health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("detection service is %s", resp.GetStatus())
	}
	return nil
}

// Infer sends one frame to the remote detector
func (c *Client) Infer(ctx context.Context, frame *models.RawFrame) ([]models.Detection, error) {
	if !c.shouldRetry() {
		return nil, fmt.Errorf("in backoff period after consecutive failures")
	}
	if err := c.Connect(); err != nil {
		c.recordFailure()
		return nil, err
	}

	jpeg, err := c.encoder.Encode(frame, c.quality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(jpeg), resp); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	c.mu.Lock()
	c.consecutiveFails = 0
	c.mu.Unlock()

	return parseDetections(resp)
}

// parseDetections converts the response Struct into detections
func parseDetections(resp *structpb.Struct) ([]models.Detection, error) {
	list := resp.GetFields()["detections"].GetListValue()
	if list == nil {
		return nil, nil
	}

	detections := make([]models.Detection, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}
		box := fields["box"].GetListValue().GetValues()
		if len(box) != 4 {
			return nil, fmt.Errorf("detection %d has %d box coordinates", i, len(box))
		}
		detections = append(detections, models.Detection{
			Label:      fields["label"].GetStringValue(),
			Confidence: float32(fields["confidence"].GetNumberValue()),
			Box: models.BoundingBox{
				X1: float32(box[0].GetNumberValue()),
				Y1: float32(box[1].GetNumberValue()),
				X2: float32(box[2].GetNumberValue()),
				Y2: float32(box[3].GetNumberValue()),
			},
		})
	}
	return detections, nil
}

// shouldRetry applies exponential backoff after consecutive failures
func (c *Client) shouldRetry() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.consecutiveFails == 0 {
		return true
	}

	// 1s, 2s, 4s, 8s, 16s, 30s (max)
	backoff := time.Duration(1<<uint(min(c.consecutiveFails-1, 5))) * time.Second
	if backoff > c.maxRetryBackoff {
		backoff = c.maxRetryBackoff
	}
	return time.Since(c.lastFailTime) >= backoff
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	c.lastFailTime = time.Now()

	if c.consecutiveFails <= 5 {
		log.Warn().Int("consecutive_fails", c.consecutiveFails).Msg("AI connection failure recorded")
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	log.Info().Msg("Shutting down detection service connection")
	err := c.conn.Close()
	c.conn = nil
	return err
}

// parseGRPCEndpoint normalizes host[:port] or scheme://host[:port] into a dial
// target and picks TLS for https and the usual TLS ports.
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if !strings.Contains(endpoint, "://") {
		host, port, found := strings.Cut(endpoint, ":")
		switch {
		case !found:
			endpoint = "https://" + host + ":443"
		default:
			if p, err := strconv.Atoi(port); err == nil && (p == 443 || p == 8443 || p == 9443) {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	switch u.Scheme {
	case "https":
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	case "http":
		return host, insecure.NewCredentials(), nil
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}
