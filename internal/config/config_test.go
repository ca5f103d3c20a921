package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

var allVars = []string{
	"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "METRICS_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"DETECTOR_PROVIDER", "DETECTOR_REPLAY_PATH", "DETECTOR_GESTURE", "DETECTOR_HANDEDNESS_FALLBACK",
	"CAPTURE_DEVICE", "CAPTURE_COUNTDOWN", "CAPTURE_DURATION", "CAPTURE_MAX_FRAMES", "CAPTURE_FPS", "PLAYBACK_FPS",
	"BACKEND_BASE_URL", "BACKEND_PREDICT_PATH", "BACKEND_CONTRIBUTE_PATH", "BACKEND_VIDEO_PATH",
	"BACKEND_LANDMARK_FIELD", "BACKEND_TIMEOUT", "BACKEND_RATE_LIMIT",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_CONTRIBUTION", "KAFKA_TOPIC_PREDICTION", "KAFKA_PRINCIPAL",
	"REVIEW_CACHE_SIZE", "REVIEW_CACHE_TTL",
}

func clearEnv() {
	for _, v := range allVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-sign-landmark" {
		t.Errorf("expected default principal 'svc-sign-landmark', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Service.MetricsPort)
	}

	// Detector defaults
	if cfg.Detector.Provider != "mock" {
		t.Errorf("expected default detector provider 'mock', got %s", cfg.Detector.Provider)
	}
	if cfg.Detector.HandednessFallback != "drop" {
		t.Errorf("expected default handedness fallback 'drop', got %s", cfg.Detector.HandednessFallback)
	}

	// Capture defaults
	if cfg.Capture.Countdown != 3*time.Second {
		t.Errorf("expected default countdown 3s, got %v", cfg.Capture.Countdown)
	}
	if cfg.Capture.Duration != 5*time.Second {
		t.Errorf("expected default duration 5s, got %v", cfg.Capture.Duration)
	}
	if cfg.Capture.MaxFrames != 0 {
		t.Errorf("expected default max frames 0, got %d", cfg.Capture.MaxFrames)
	}
	if cfg.Capture.FPS != 60 {
		t.Errorf("expected default FPS 60, got %v", cfg.Capture.FPS)
	}
	if cfg.Capture.PlaybackFPS != 30 {
		t.Errorf("expected default playback FPS 30, got %v", cfg.Capture.PlaybackFPS)
	}

	// Backend defaults
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default backend URL, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.LandmarkField != "landmarks" {
		t.Errorf("expected default landmark field 'landmarks', got %s", cfg.Backend.LandmarkField)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("expected default backend timeout 30s, got %v", cfg.Backend.Timeout)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers [localhost:9092], got %v", cfg.Kafka.Brokers)
	}

	// Review cache defaults
	if cfg.ReviewCache.MaxContributions != 256 {
		t.Errorf("expected default review cache size 256, got %d", cfg.ReviewCache.MaxContributions)
	}
	if cfg.ReviewCache.TTL != time.Hour {
		t.Errorf("expected default review cache TTL 1h, got %v", cfg.ReviewCache.TTL)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("DETECTOR_PROVIDER", "replay")
	os.Setenv("DETECTOR_REPLAY_PATH", "/data/session.jsonl")
	os.Setenv("DETECTOR_HANDEDNESS_FALLBACK", "left")
	os.Setenv("CAPTURE_COUNTDOWN", "0s")
	os.Setenv("CAPTURE_DURATION", "10s")
	os.Setenv("CAPTURE_MAX_FRAMES", "120")
	os.Setenv("CAPTURE_FPS", "30")
	os.Setenv("BACKEND_BASE_URL", "https://model.example.com")
	os.Setenv("BACKEND_LANDMARK_FIELD", "frames")
	os.Setenv("BACKEND_RATE_LIMIT", "0.5")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	os.Setenv("REVIEW_CACHE_TTL", "15m")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected HTTP port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Detector.Provider != "replay" || cfg.Detector.ReplayPath != "/data/session.jsonl" {
		t.Errorf("unexpected detector config: %+v", cfg.Detector)
	}
	if cfg.Detector.HandednessFallback != "left" {
		t.Errorf("expected handedness fallback 'left', got %s", cfg.Detector.HandednessFallback)
	}
	if cfg.Capture.Countdown != 0 {
		t.Errorf("expected countdown 0, got %v", cfg.Capture.Countdown)
	}
	if cfg.Capture.Duration != 10*time.Second {
		t.Errorf("expected duration 10s, got %v", cfg.Capture.Duration)
	}
	if cfg.Capture.MaxFrames != 120 {
		t.Errorf("expected max frames 120, got %d", cfg.Capture.MaxFrames)
	}
	if cfg.Capture.FPS != 30 {
		t.Errorf("expected FPS 30, got %v", cfg.Capture.FPS)
	}
	if cfg.Backend.BaseURL != "https://model.example.com" {
		t.Errorf("expected custom backend URL, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.LandmarkField != "frames" {
		t.Errorf("expected landmark field 'frames', got %s", cfg.Backend.LandmarkField)
	}
	if cfg.Backend.RateLimit != 0.5 {
		t.Errorf("expected rate limit 0.5, got %v", cfg.Backend.RateLimit)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.ReviewCache.TTL != 15*time.Minute {
		t.Errorf("expected review cache TTL 15m, got %v", cfg.ReviewCache.TTL)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("CAPTURE_COUNTDOWN", "three seconds")
	os.Setenv("CAPTURE_MAX_FRAMES", "invalid")
	os.Setenv("CAPTURE_FPS", "fast")
	os.Setenv("BACKEND_TIMEOUT", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	os.Setenv("KAFKA_BROKERS", " , ")
	os.Setenv("REVIEW_CACHE_SIZE", "lots")
	defer clearEnv()

	cfg := Load()

	if cfg.Capture.Countdown != 3*time.Second {
		t.Errorf("expected default countdown on invalid input, got %v", cfg.Capture.Countdown)
	}
	if cfg.Capture.MaxFrames != 0 {
		t.Errorf("expected default max frames on invalid input, got %d", cfg.Capture.MaxFrames)
	}
	if cfg.Capture.FPS != 60 {
		t.Errorf("expected default FPS on invalid input, got %v", cfg.Capture.FPS)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("expected default backend timeout on invalid input, got %v", cfg.Backend.Timeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled on invalid input")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers on blank list, got %v", cfg.Kafka.Brokers)
	}
	if cfg.ReviewCache.MaxContributions != 256 {
		t.Errorf("expected default review cache size on invalid input, got %d", cfg.ReviewCache.MaxContributions)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv()

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
