package app

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"sign-landmark-service/internal/config"
	"sign-landmark-service/internal/events"
	"sign-landmark-service/internal/schema"
	"sign-landmark-service/internal/service/backend"
	"sign-landmark-service/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "sign-landmark-service"

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Backend       *backend.Client
	Publisher     *events.Publisher
	Validator     *schema.Validator
	Contributions *store.Store

	ready atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg:       cfg,
		Backend:   backend.New(BackendConfig(cfg)),
		Validator: schema.New(),
		Publisher: events.New(&events.Config{
			Enabled:           cfg.Kafka.Enabled,
			Brokers:           cfg.Kafka.Brokers,
			TopicContribution: cfg.Kafka.TopicContribution,
			TopicPrediction:   cfg.Kafka.TopicPrediction,
			Principal:         cfg.Kafka.Principal,
		}),
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("component", "application").
		Str("method", "New").
		Logger()

	appLogger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Bool("kafka", a.Publisher.Enabled()).
		Msg("Sign landmark service application created")
	return a
}

// BackendConfig maps service configuration onto the backend client.
func BackendConfig(cfg *config.Configuration) backend.Config {
	return backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		PredictPath:    cfg.Backend.PredictPath,
		ContributePath: cfg.Backend.ContributePath,
		VideoPath:      cfg.Backend.VideoPath,
		LandmarkField:  cfg.Backend.LandmarkField,
		Timeout:        cfg.Backend.Timeout,
		RateLimit:      cfg.Backend.RateLimit,
		Principal:      cfg.Service.Principal,
	}
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	// ZEROLOG_LOG_LEVEL overrides the level set by logging.Init
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			zerolog.SetGlobalLevel(parsedLevel)
		}
	}
	logLevel := zerolog.GlobalLevel()

	if os.Getenv("ENV") == "dev" {
		a.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	} else {
		a.Logger = zerolog.New(os.Stdout).With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	}

	a.Logger.Debug().
		Str("logLevel", logLevel.String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start opens the contribution review cache and marks the application
// ready to serve traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	contributions, err := store.New(store.Config{
		MaxContributions: a.Cfg.ReviewCache.MaxContributions,
		TTL:              a.Cfg.ReviewCache.TTL,
	})
	if err != nil {
		return fmt.Errorf("review cache: %w", err)
	}
	a.Contributions = contributions

	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Sign landmark service starting")

	return nil
}

// Ready reports whether Start completed and Shutdown has not begun.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.ready.Store(false)
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Failed to close event publisher")
	}
	if a.Contributions != nil {
		a.Contributions.Close()
	}

	shutdownLogger.Info().Msg("Sign landmark service shutting down")
}
