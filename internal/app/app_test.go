package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sign-landmark-service/internal/config"
	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/service/detector/mock"
	"sign-landmark-service/internal/service/detector/replay"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Service:     config.ServiceConfig{Principal: "svc-test"},
		Detector:    config.DetectorConfig{Provider: "mock", Gesture: "hello", HandednessFallback: "drop"},
		Capture:     config.CaptureConfig{DeviceID: "cam-1", Countdown: time.Second, Duration: 2 * time.Second, MaxFrames: 90, FPS: 30},
		Backend:     config.BackendConfig{BaseURL: "http://backend", ContributePath: "/c", LandmarkField: "frames"},
		Kafka:       config.KafkaConfig{Enabled: false},
		ReviewCache: config.ReviewCacheConfig{MaxContributions: 8, TTL: time.Minute},
	}
}

func TestApplication_Lifecycle(t *testing.T) {
	a := New(testConfig())
	require.NotNil(t, a.Backend)
	require.NotNil(t, a.Publisher)
	require.NotNil(t, a.Validator)
	assert.False(t, a.Ready())
	assert.False(t, a.Publisher.Enabled())

	require.NoError(t, a.Start())
	assert.True(t, a.Ready())
	assert.NotNil(t, a.Contributions)
	assert.False(t, a.StartupTime.IsZero())

	a.Shutdown()
	assert.False(t, a.Ready())
}

func TestBackendConfig(t *testing.T) {
	bc := BackendConfig(testConfig())
	assert.Equal(t, "http://backend", bc.BaseURL)
	assert.Equal(t, "/c", bc.ContributePath)
	assert.Equal(t, "frames", bc.LandmarkField)
	assert.Equal(t, "svc-test", bc.Principal)
}

func TestNewDetector(t *testing.T) {
	det, err := NewDetector(config.DetectorConfig{Provider: "mock", Gesture: "thank-you"})
	require.NoError(t, err)
	assert.IsType(t, &mock.Adapter{}, det)

	det, err = NewDetector(config.DetectorConfig{Provider: "replay", ReplayPath: "/tmp/results.jsonl"})
	require.NoError(t, err)
	assert.IsType(t, &replay.Adapter{}, det)

	_, err = NewDetector(config.DetectorConfig{Provider: "replay"})
	assert.Error(t, err, "replay needs a path")

	_, err = NewDetector(config.DetectorConfig{Provider: "mock", Gesture: "wave-goodbye"})
	assert.Error(t, err)

	_, err = NewDetector(config.DetectorConfig{Provider: "onnx"})
	assert.Error(t, err)
}

func TestCaptureOptions(t *testing.T) {
	cfg := testConfig()
	opts := CaptureOptions(cfg)

	assert.Equal(t, "cam-1", opts.DeviceID)
	assert.Equal(t, time.Second, opts.Countdown)
	assert.Equal(t, 2*time.Second, opts.Duration)
	assert.Equal(t, 90, opts.MaxFrames)
	assert.Equal(t, time.Second/30, opts.TickInterval)
	assert.Equal(t, landmark.FallbackDrop, opts.Encoder.Fallback)

	cfg.Capture.FPS = 0
	cfg.Detector.HandednessFallback = "left"
	opts = CaptureOptions(cfg)
	assert.Equal(t, time.Second/60, opts.TickInterval, "invalid fps keeps the default")
	assert.Equal(t, landmark.FallbackAssumeLeft, opts.Encoder.Fallback)
}
