package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sign-landmark-service/internal/app"
	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/models"
	"sign-landmark-service/internal/observability/logging"
	"sign-landmark-service/internal/schema"
	"sign-landmark-service/internal/service/backend"
	"sign-landmark-service/internal/store"
)

const (
	defaultOverlayWidth  = 640
	defaultOverlayHeight = 480
	maxOverlaySide       = 1920
)

var (
	errReviewUnavailable = errors.New("contribution review cache is not running")
	errInvalidFrameIndex = errors.New("frame index must be a non-negative integer")
	errFrameOutOfRange   = errors.New("frame index out of range")
	errInvalidFPS        = errors.New("fps must be a positive number")
	errMissingVideo      = errors.New("video file is required")
)

type handlers struct {
	app    *app.Application
	logger zerolog.Logger
}

type predictResponse struct {
	Status     string  `json:"status"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Frames     int     `json:"frames"`
}

type contributeResponse struct {
	Status         string `json:"status"`
	ContributionID string `json:"contributionId"`
	Frames         int    `json:"frames,omitempty"`
	Message        string `json:"message,omitempty"`
}

type decodeRequest struct {
	Landmarks []float64 `json:"landmarks"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
}

type decodeResponse struct {
	Status   string            `json:"status"`
	Frame    landmark.Frame    `json:"frame"`
	HasData  map[string]bool   `json:"hasData"`
	Overlay  *landmark.Overlay `json:"overlay,omitempty"`
	Complete bool              `json:"complete"`
}

func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var p schema.SequencePayload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	seq := p.Sequence()
	if err := h.app.Validator.ValidateSequence(seq); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	res, err := h.app.Backend.Predict(r.Context(), seq)
	if err != nil {
		h.logger.Warn().Err(err).Int("frames", len(seq)).Msg("Prediction failed")
		writeError(w, statusFor(err), err)
		return
	}

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	summary := schema.Summarize(seq)
	event := models.PredictionEvent{
		EventType:  models.EventTypePrediction,
		RequestID:  requestID,
		Principal:  h.app.Cfg.Kafka.Principal,
		Prediction: res.Prediction,
		Confidence: res.Confidence,
		Frames:     summary.Frames,
		Coverage:   summary.Coverage,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := h.app.Publisher.PublishPrediction(r.Context(), requestID, event); err != nil {
		h.logger.Warn().Err(err).Str("requestId", requestID).Msg("Failed to publish prediction event")
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Status:     backend.StatusSuccess,
		Prediction: res.Prediction,
		Confidence: res.Confidence,
		Frames:     len(seq),
	})
}

func (h *handlers) contribute(w http.ResponseWriter, r *http.Request) {
	var p schema.SequencePayload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := h.app.Validator.ValidateContribution(p); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	seq := p.Sequence()

	res, err := h.app.Backend.SubmitLandmarks(r.Context(), p.Sign, seq)
	if err != nil {
		h.logger.Warn().Err(err).Str("sign", p.Sign).Int("frames", len(seq)).Msg("Contribution failed")
		writeError(w, statusFor(err), err)
		return
	}

	summary := schema.Summarize(seq)
	c := store.Contribution{
		ID:             uuid.NewString(),
		Sign:           p.Sign,
		Source:         models.SourceLandmarks,
		Frames:         summary.Frames,
		EmptyFrames:    summary.EmptyFrames,
		Coverage:       summary.Coverage,
		BackendMessage: res.Message,
		Sequence:       seq,
	}
	logger := logging.WithContribution(c.ID, c.Sign)

	if h.app.Contributions != nil {
		if _, err := h.app.Contributions.Put(c); err != nil {
			logger.Warn().Err(err).Msg("Contribution not kept for review")
		}
	}
	h.publishContribution(r, logger, c)

	logger.Info().
		Int("frames", summary.Frames).
		Int("emptyFrames", summary.EmptyFrames).
		Msg("Contribution stored")

	writeJSON(w, http.StatusOK, contributeResponse{
		Status:         backend.StatusSuccess,
		ContributionID: c.ID,
		Frames:         summary.Frames,
		Message:        res.Message,
	})
}

func (h *handlers) contributeVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	sign := r.FormValue("sign")
	if err := h.app.Validator.ValidateSign(sign); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingVideo)
		return
	}
	defer file.Close()

	res, err := h.app.Backend.SubmitVideo(r.Context(), sign, header.Filename, file)
	if err != nil {
		h.logger.Warn().Err(err).Str("sign", sign).Msg("Video contribution failed")
		writeError(w, statusFor(err), err)
		return
	}

	c := store.Contribution{
		ID:             uuid.NewString(),
		Sign:           sign,
		Source:         models.SourceVideo,
		BackendMessage: res.Message,
	}
	logger := logging.WithContribution(c.ID, c.Sign)
	h.publishContribution(r, logger, c)
	logger.Info().Int64("bytes", header.Size).Msg("Video contribution forwarded")

	writeJSON(w, http.StatusOK, contributeResponse{
		Status:         backend.StatusSuccess,
		ContributionID: c.ID,
		Message:        res.Message,
	})
}

func (h *handlers) publishContribution(r *http.Request, logger zerolog.Logger, c store.Contribution) {
	event := models.ContributionEvent{
		EventType:      models.EventTypeContribution,
		ContributionID: c.ID,
		Principal:      h.app.Cfg.Kafka.Principal,
		Sign:           c.Sign,
		Source:         c.Source,
		Frames:         c.Frames,
		EmptyFrames:    c.EmptyFrames,
		Coverage:       c.Coverage,
		BackendMessage: c.BackendMessage,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := h.app.Publisher.PublishContribution(r.Context(), c.Sign, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish contribution event")
	}
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	f := landmark.Decode(req.Landmarks)
	resp := decodeResponse{
		Status:   backend.StatusSuccess,
		Frame:    f,
		HasData:  f.Presence(),
		Complete: len(req.Landmarks) >= landmark.VectorLen,
	}
	if req.Width > 0 && req.Height > 0 {
		ov := landmark.BuildOverlay(f, min(req.Width, maxOverlaySide), min(req.Height, maxOverlaySide))
		resp.Overlay = &ov
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (*store.Contribution, bool) {
	if h.app.Contributions == nil {
		writeError(w, http.StatusServiceUnavailable, errReviewUnavailable)
		return nil, false
	}
	c, err := h.app.Contributions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return c, true
}

func (h *handlers) getContribution(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) frameImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, errInvalidFrameIndex)
		return
	}
	if n >= len(c.Sequence) {
		writeError(w, http.StatusNotFound, errFrameOutOfRange)
		return
	}

	width := queryInt(r, "width", defaultOverlayWidth)
	height := queryInt(r, "height", defaultOverlayHeight)
	ov := landmark.BuildOverlay(landmark.Decode(c.Sequence[n]), width, height)

	w.Header().Set("Content-Type", "image/png")
	if err := ov.PNG(w); err != nil {
		h.logger.Warn().Err(err).Str("contributionId", c.ID).Int("frame", n).Msg("Failed to encode frame")
	}
}

// queryInt reads a positive integer query parameter, clamped to
// maxOverlaySide.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return min(v, maxOverlaySide)
}
