package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Capture
	CaptureWidth        int
	CaptureHeight       int
	CaptureFPS          int
	MaxRetries          int // reconnect attempts per round before backing off
	FrameStaleThreshold time.Duration
	ReadRetryDelay      time.Duration
	IdleDelay           time.Duration

	// Backoff/Jitter between reconnect rounds
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration
	ReconnectJitterPct  int

	// Detection
	Detector            string // yolo | grpc | rekognition | none
	ModelPath           string
	ModelClasses        []string
	ModelInputSize      int
	ConfidenceThreshold float64
	NMSThreshold        float64
	AIGRPCURL           string
	AITimeout           time.Duration

	// AWS Rekognition
	AWSRegion                string
	RekognitionMinConfidence float64

	// Threat vocabularies
	ThreatHighLabels    []string
	ThreatNotableLabels []string
	ThreatConfigFile    string

	// Alerting
	AlertsCooldown            time.Duration
	AlertsCooldownEvictFactor int
	AlertSinks                []string
	AlertsSubject             string

	// NATS
	// Default: nats://localhost:4222, nats://nats:4222 inside Docker
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string
	MQTTQoS      int

	// Kafka
	KafkaBrokers     []string
	KafkaAlertsTopic string

	// Alert snapshots (MinIO / S3)
	SnapshotsEnabled bool
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool

	// Stream Output
	OutputQuality     int
	SubscriberBuffer  int
	SubscriberMaxDrop int
	KeepaliveInterval time.Duration

	// Store
	DatabaseURL string
	DBMigrate   bool

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "worker-1"),
		Port:        getEnvInt("PORT", 5000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Capture
		CaptureWidth:        getEnvInt("CAPTURE_WIDTH", 640),
		CaptureHeight:       getEnvInt("CAPTURE_HEIGHT", 480),
		CaptureFPS:          getEnvInt("CAPTURE_FPS", 30),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		FrameStaleThreshold: getEnvDuration("FRAME_STALE_THRESHOLD", 5*time.Second),
		ReadRetryDelay:      getEnvDuration("READ_RETRY_DELAY", 100*time.Millisecond),
		IdleDelay:           getEnvDuration("IDLE_DELAY", 1*time.Second),

		ReconnectBackoffMin: getEnvDuration("RECONNECT_BACKOFF_MIN", 1*time.Second),
		ReconnectBackoffMax: getEnvDuration("RECONNECT_BACKOFF_MAX", 30*time.Second),
		ReconnectJitterPct:  getEnvInt("RECONNECT_JITTER_PCT", 20),

		// Detection
		Detector:            strings.ToLower(getEnv("DETECTOR", "yolo")),
		ModelPath:           getEnv("MODEL_PATH", "models/best.onnx"),
		ModelClasses:        getEnvList("MODEL_CLASSES", []string{"gun", "knife", "medical_mask", "nomask", "other_coverings", "person", "weapon"}),
		ModelInputSize:      getEnvInt("MODEL_INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.5),
		NMSThreshold:        getEnvFloat("NMS_THRESHOLD", 0.45),
		AIGRPCURL:           getEnv("AI_GRPC_URL", "localhost:50052"),
		AITimeout:           getEnvDuration("AI_TIMEOUT", 5*time.Second),

		AWSRegion:                getEnv("AWS_REGION", "us-east-1"),
		RekognitionMinConfidence: getEnvFloat("REKOGNITION_MIN_CONFIDENCE", 60),

		// Threat
		ThreatHighLabels:    getEnvList("THREAT_HIGH_LABELS", []string{"weapon", "knife", "gun", "other_coverings"}),
		ThreatNotableLabels: getEnvList("THREAT_NOTABLE_LABELS", []string{"person", "medical_mask", "nomask"}),
		ThreatConfigFile:    getEnv("THREAT_CONFIG_FILE", ""),

		// Alerting
		AlertsCooldown:            getEnvDuration("ALERTS_COOLDOWN", 5*time.Second),
		AlertsCooldownEvictFactor: getEnvInt("ALERTS_COOLDOWN_EVICT_FACTOR", 10),
		AlertSinks:                getEnvList("ALERT_SINKS", []string{"nats"}),
		AlertsSubject:             getEnv("ALERTS_SUBJECT", "alerts.surveillance"),

		// NATS (configured for Docker Compose setup)
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// MQTT
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "vigil-worker"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "vigil/alerts"),
		MQTTQoS:      getEnvInt("MQTT_QOS", 1),

		// Kafka
		KafkaBrokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaAlertsTopic: getEnv("KAFKA_ALERTS_TOPIC", "surveillance-alerts"),

		// Snapshots
		SnapshotsEnabled: getEnvBool("SNAPSHOTS_ENABLED", false),
		MinioEndpoint:    getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:      getEnv("MINIO_BUCKET", "alert-snapshots"),
		MinioUseSSL:      getEnvBool("MINIO_USE_SSL", false),

		// Stream Output
		OutputQuality:     getEnvInt("OUTPUT_QUALITY", 85),
		SubscriberBuffer:  getEnvInt("SUBSCRIBER_BUFFER", 2),
		SubscriberMaxDrop: getEnvInt("SUBSCRIBER_MAX_DROPS", 50),
		KeepaliveInterval: getEnvDuration("KEEPALIVE_INTERVAL", 2*time.Second),

		// Store
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMigrate:   getEnvBool("DB_MIGRATE", true),

		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:5000"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
