// capturesim runs one headless capture session with a synthetic camera and
// the configured detector, then submits the recording through the service
// API.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/app"
	"sign-landmark-service/internal/config"
	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/observability/logging"
	"sign-landmark-service/internal/service/backend"
	"sign-landmark-service/internal/service/camera"
	"sign-landmark-service/internal/service/capture"
	"sign-landmark-service/internal/service/detector/mock"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred teardown always runs.
func run() int {
	cfg := config.Load()

	apiURL := flag.String("api", "http://localhost:"+cfg.Service.HTTPPort, "Service API base URL")
	sign := flag.String("sign", "hello", "Sign label to record")
	mode := flag.String("mode", "contribute", "contribute or predict")
	flag.StringVar(&cfg.Detector.Provider, "detector", cfg.Detector.Provider, "Detector provider (mock or replay)")
	flag.StringVar(&cfg.Detector.Gesture, "gesture", "", "Mock gesture (defaults to the sign)")
	flag.StringVar(&cfg.Detector.ReplayPath, "replay", cfg.Detector.ReplayPath, "Recorded detector output for the replay provider")
	flag.StringVar(&cfg.Detector.HandednessFallback, "handedness-fallback", cfg.Detector.HandednessFallback, "drop or left")
	flag.DurationVar(&cfg.Capture.Countdown, "countdown", cfg.Capture.Countdown, "Countdown before recording")
	flag.DurationVar(&cfg.Capture.Duration, "duration", cfg.Capture.Duration, "Recording duration")
	flag.IntVar(&cfg.Capture.MaxFrames, "max-frames", cfg.Capture.MaxFrames, "Stop after this many frames (0 is unbounded)")
	flag.Float64Var(&cfg.Capture.FPS, "fps", cfg.Capture.FPS, "Capture frames per second")
	flag.Parse()

	logging.Init(logging.Config{Level: cfg.Observability.LogLevel, Format: "console", TimeFormat: time.RFC3339})

	if cfg.Detector.Gesture == "" {
		cfg.Detector.Gesture = *sign
		if _, ok := mock.GestureByName(*sign); !ok {
			cfg.Detector.Gesture = mock.DefaultGestures[0].Name
		}
	}

	det, err := app.NewDetector(cfg.Detector)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create detector")
		return 1
	}
	defer det.Close()

	client := backend.New(backend.Config{
		BaseURL:        *apiURL,
		PredictPath:    "/api/predict",
		ContributePath: "/api/contribute",
		LandmarkField:  backend.FieldLandmarks,
		Timeout:        30 * time.Second,
		Principal:      cfg.Service.Principal,
	})

	opts := app.CaptureOptions(cfg)
	previewEvery := int(max(cfg.Capture.FPS, 1))
	opts.OnFrame = func(index int, vec []float64) {
		if index%previewEvery == 0 {
			f := landmark.Decode(vec)
			log.Info().Int("frame", index).Interface("hasData", f.Presence()).Msg("Preview")
		}
	}

	rec := capture.NewRecorder(camera.NewManager(camera.NewSyntheticSource()), det, client, opts)
	defer rec.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rec.Start(ctx, *sign); err != nil {
		log.Error().Err(err).Msg("Failed to start capture")
		return 1
	}

	select {
	case <-rec.Done():
	case <-ctx.Done():
		rec.Cancel()
		log.Warn().Msg("Capture interrupted")
		return 1
	}

	// Stop also reports an empty recording that ended on its own budget
	if err := rec.Stop(); errors.Is(err, capture.ErrNoLandmarksDetected) {
		log.Error().Err(err).Int("frames", rec.Len()).Msg("Nothing to submit")
		return 1
	}
	log.Info().
		Str("sessionId", rec.SessionID()).
		Int("frames", rec.Len()).
		Msg("Recording ready for review")

	submitCtx, submitCancel := context.WithTimeout(ctx, 30*time.Second)
	defer submitCancel()

	switch strings.ToLower(*mode) {
	case "predict":
		res, err := client.Predict(submitCtx, rec.Sequence())
		if err != nil {
			log.Error().Err(err).Msg("Prediction failed")
			return 1
		}
		log.Info().Str("prediction", res.Prediction).Float64("confidence", res.Confidence).Msg("Prediction received")
	default:
		res, err := rec.Submit(submitCtx)
		if err != nil {
			log.Error().Err(err).Msg("Submission failed")
			return 1
		}
		log.Info().Str("status", res.Status).Str("message", res.Message).RawJSON("response", res.Raw).Msg("Contribution submitted")
	}
	return 0
}
