package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/observability/logging"
	"sign-landmark-service/internal/observability/metrics"
)

const playbackWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // review tool runs on another origin
	},
}

// playbackFrame is one websocket message of a playback stream.
type playbackFrame struct {
	Index   int             `json:"index"`
	Total   int             `json:"total"`
	Frame   landmark.Frame  `json:"frame"`
	HasData map[string]bool `json:"hasData"`
}

// playback streams a stored contribution frame by frame, looping until the
// client disconnects.
func (h *handlers) playback(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	fps := h.app.Cfg.Capture.PlaybackFPS
	if v := r.URL.Query().Get("fps"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidFPS)
			return
		}
		fps = parsed
	}

	player, err := landmark.NewPlayer(c.Sequence, fps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := logging.WithContribution(c.ID, c.Sign)
	metrics.DefaultMetrics.PlaybackActive.Inc()
	defer metrics.DefaultMetrics.PlaybackActive.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reads only detect the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Int("frames", player.Len()).Float64("fps", fps).Msg("Playback started")

	err = player.Play(ctx, func(index int, f landmark.Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(playbackWriteWait))
		return conn.WriteJSON(playbackFrame{
			Index:   index,
			Total:   player.Len(),
			Frame:   f,
			HasData: f.Presence(),
		})
	})
	if err != nil && ctx.Err() == nil {
		logger.Debug().Err(err).Msg("Playback write failed")
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	logger.Info().Msg("Playback ended")
}
