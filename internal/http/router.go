package http

import (
	"net/http"

	"sign-landmark-service/internal/app"
	"sign-landmark-service/internal/observability/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handlers{
		app:    application,
		logger: logging.WithComponent("http"),
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(recordMetrics)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Proxy routes used by the capture client
	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", h.predict)
		r.Post("/contribute", h.contribute)
		r.Post("/contribute-video", h.contributeVideo)
		r.Post("/decode", h.decode)
	})

	// Dataset review
	r.Route("/v1/contributions/{id}", func(r chi.Router) {
		r.Get("/", h.getContribution)
		r.Get("/frames/{n}", h.frameImage)
		r.Get("/playback", h.playback)
	})

	return r
}
