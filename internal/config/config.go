// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Detector      DetectorConfig
	Capture       CaptureConfig
	Backend       BackendConfig
	Kafka         KafkaConfig
	ReviewCache   ReviewCacheConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener and identity settings.
type ServiceConfig struct {
	Principal   string
	GRPCPort    string
	HTTPPort    string
	MetricsPort string
}

// DetectorConfig selects the keypoint detector adapter.
type DetectorConfig struct {
	Provider           string // mock, replay
	ReplayPath         string
	Gesture            string // mock gesture name
	HandednessFallback string // drop, left
}

// CaptureConfig holds capture session timing.
type CaptureConfig struct {
	DeviceID    string
	Countdown   time.Duration
	Duration    time.Duration
	MaxFrames   int
	FPS         float64
	PlaybackFPS float64
}

// BackendConfig points at the model-serving API.
type BackendConfig struct {
	BaseURL        string
	PredictPath    string
	ContributePath string
	VideoPath      string
	LandmarkField  string
	Timeout        time.Duration
	RateLimit      float64
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	TopicContribution string
	TopicPrediction   string
	Principal         string
}

// ReviewCacheConfig sizes the in-memory contribution review cache.
type ReviewCacheConfig struct {
	MaxContributions int64
	TTL              time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Unset or invalid
// values fall back to defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-sign-landmark")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Detector: DetectorConfig{
			Provider:           envOrDefault("DETECTOR_PROVIDER", "mock"),
			ReplayPath:         os.Getenv("DETECTOR_REPLAY_PATH"),
			Gesture:            envOrDefault("DETECTOR_GESTURE", "hello"),
			HandednessFallback: envOrDefault("DETECTOR_HANDEDNESS_FALLBACK", "drop"),
		},
		Capture: CaptureConfig{
			DeviceID:    envOrDefault("CAPTURE_DEVICE", "default"),
			Countdown:   envOrDefaultDuration("CAPTURE_COUNTDOWN", 3*time.Second),
			Duration:    envOrDefaultDuration("CAPTURE_DURATION", 5*time.Second),
			MaxFrames:   envOrDefaultInt("CAPTURE_MAX_FRAMES", 0),
			FPS:         envOrDefaultFloat("CAPTURE_FPS", 60),
			PlaybackFPS: envOrDefaultFloat("PLAYBACK_FPS", 30),
		},
		Backend: BackendConfig{
			BaseURL:        envOrDefault("BACKEND_BASE_URL", "http://localhost:8000"),
			PredictPath:    envOrDefault("BACKEND_PREDICT_PATH", "/predict"),
			ContributePath: envOrDefault("BACKEND_CONTRIBUTE_PATH", "/contribute"),
			VideoPath:      envOrDefault("BACKEND_VIDEO_PATH", "/contribute-video"),
			LandmarkField:  envOrDefault("BACKEND_LANDMARK_FIELD", "landmarks"),
			Timeout:        envOrDefaultDuration("BACKEND_TIMEOUT", 30*time.Second),
			RateLimit:      envOrDefaultFloat("BACKEND_RATE_LIMIT", 5),
		},
		Kafka: KafkaConfig{
			Enabled:           envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:           envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicContribution: envOrDefault("KAFKA_TOPIC_CONTRIBUTION", "sign.landmarks.contribution"),
			TopicPrediction:   envOrDefault("KAFKA_TOPIC_PREDICTION", "sign.landmarks.prediction"),
			Principal:         envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		ReviewCache: ReviewCacheConfig{
			MaxContributions: int64(envOrDefaultInt("REVIEW_CACHE_SIZE", 256)),
			TTL:              envOrDefaultDuration("REVIEW_CACHE_TTL", time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
