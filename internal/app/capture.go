package app

import (
	"fmt"
	"time"

	"sign-landmark-service/internal/config"
	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/observability/logging"
	"sign-landmark-service/internal/service/capture"
	"sign-landmark-service/internal/service/detector"
	"sign-landmark-service/internal/service/detector/mock"
	"sign-landmark-service/internal/service/detector/replay"
)

// Detector providers.
const (
	ProviderMock   = "mock"
	ProviderReplay = "replay"
)

// NewDetector builds the detector adapter selected by DETECTOR_PROVIDER.
// The caller initializes and closes it.
func NewDetector(cfg config.DetectorConfig) (detector.Adapter, error) {
	logger := logging.WithDetector(cfg.Provider)

	switch cfg.Provider {
	case ProviderMock, "":
		g, ok := mock.GestureByName(cfg.Gesture)
		if !ok {
			return nil, fmt.Errorf("unknown mock gesture %q", cfg.Gesture)
		}
		logger.Info().Str("gesture", g.Name).Msg("Using mock detector")
		return mock.New(mock.Options{Gesture: &g}), nil
	case ProviderReplay:
		if cfg.ReplayPath == "" {
			return nil, fmt.Errorf("DETECTOR_REPLAY_PATH is required for the %s provider", ProviderReplay)
		}
		logger.Info().Str("path", cfg.ReplayPath).Msg("Using replay detector")
		return replay.New(cfg.ReplayPath), nil
	default:
		return nil, fmt.Errorf("unknown detector provider %q", cfg.Provider)
	}
}

// CaptureOptions maps capture configuration onto recorder options.
func CaptureOptions(cfg *config.Configuration) capture.Options {
	opts := capture.DefaultOptions()
	opts.DeviceID = cfg.Capture.DeviceID
	opts.Countdown = cfg.Capture.Countdown
	opts.Duration = cfg.Capture.Duration
	opts.MaxFrames = cfg.Capture.MaxFrames
	if cfg.Capture.FPS > 0 {
		opts.TickInterval = time.Duration(float64(time.Second) / cfg.Capture.FPS)
	}
	opts.Encoder = landmark.Encoder{
		Fallback: landmark.ParseHandednessFallback(cfg.Detector.HandednessFallback),
	}
	return opts
}
