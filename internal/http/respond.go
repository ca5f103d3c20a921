package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/observability/metrics"
	"sign-landmark-service/internal/schema"
	"sign-landmark-service/internal/service/backend"
	"sign-landmark-service/internal/store"
)

const (
	maxJSONBody  = 64 << 20
	maxVideoBody = 256 << 20
)

var errMalformedBody = errors.New("request body is not valid JSON")

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response body")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Status: backend.StatusError, Message: err.Error()})
}

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, errMalformedBody),
		errors.Is(err, backend.ErrEmptySequence),
		errors.Is(err, backend.ErrMissingSign):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		// remote errors, invalid responses and transport failures
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

// recordMetrics records request counts and latency per route pattern.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.DefaultMetrics.RecordHTTPRequest(route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}
