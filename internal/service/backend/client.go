// Package backend is the HTTP client for the remote model-serving API that
// classifies landmark sequences and stores contribution samples.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sign-landmark-service/internal/observability/metrics"
)

// Response statuses used by the serving API.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Landmark payload field names accepted by the serving API.
const (
	FieldLandmarks = "landmarks"
	FieldFrames    = "frames"
)

// Submission kinds, used as metric labels.
const (
	KindContribution = "contribution"
	KindPrediction   = "prediction"
	KindVideo        = "video"
)

var (
	ErrEmptySequence   = errors.New("no recording to submit")
	ErrMissingSign     = errors.New("sign label is required")
	ErrInvalidResponse = errors.New("backend returned a non-JSON response")
)

// RemoteError is returned when the backend answers with a non-2xx status
// or with status "error".
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Result is the backend response body.
type Result struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Prediction string          `json:"prediction,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Config holds backend client configuration.
type Config struct {
	BaseURL        string
	PredictPath    string
	ContributePath string
	VideoPath      string
	LandmarkField  string        // "landmarks" or "frames"
	Timeout        time.Duration // per request
	RateLimit      float64       // requests per second, 0 disables throttling
	Principal      string
}

// DefaultConfig returns sensible default backend configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000",
		PredictPath:    "/predict",
		ContributePath: "/contribute",
		VideoPath:      "/contribute-video",
		LandmarkField:  FieldLandmarks,
		Timeout:        30 * time.Second,
		RateLimit:      5,
	}
}

// Client talks to the model-serving API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// New creates a backend client.
func New(cfg Config) *Client {
	if cfg.LandmarkField != FieldFrames {
		cfg.LandmarkField = FieldLandmarks
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics.DefaultMetrics,
	}
}

// SubmitLandmarks stores a recorded sequence as a contribution for sign.
func (c *Client) SubmitLandmarks(ctx context.Context, sign string, seq [][]float64) (*Result, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	if strings.TrimSpace(sign) == "" {
		return nil, ErrMissingSign
	}

	body := map[string]any{
		"sign":              sign,
		c.cfg.LandmarkField: seq,
	}
	return c.postJSON(ctx, KindContribution, c.cfg.ContributePath, body)
}

// Predict asks the backend to classify a recorded sequence.
func (c *Client) Predict(ctx context.Context, seq [][]float64) (*Result, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}

	body := map[string]any{c.cfg.LandmarkField: seq}
	return c.postJSON(ctx, KindPrediction, c.cfg.PredictPath, body)
}

// SubmitVideo forwards a recorded video for sign. The video is streamed,
// not buffered.
func (c *Client) SubmitVideo(ctx context.Context, sign, filename string, video io.Reader) (*Result, error) {
	if strings.TrimSpace(sign) == "" {
		return nil, ErrMissingSign
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if err := mw.WriteField("sign", sign); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("video", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, video); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	result, err := c.do(ctx, KindVideo, c.cfg.VideoPath, mw.FormDataContentType(), pr)
	// unblock the writer goroutine if the request ended early
	pr.CloseWithError(io.ErrClosedPipe)
	return result, err
}

func (c *Client) postJSON(ctx context.Context, kind, path string, body any) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", kind, err)
	}
	return c.do(ctx, kind, path, "application/json", bytes.NewReader(payload))
}

func (c *Client) do(ctx context.Context, kind, path, contentType string, body io.Reader) (*Result, error) {
	start := time.Now()
	result, err := c.roundTrip(ctx, path, contentType, body)
	c.metrics.RecordSubmission(kind, err, time.Since(start).Seconds())

	if err != nil {
		log.Warn().
			Err(err).
			Str("kind", kind).
			Str("path", path).
			Dur("latency", time.Since(start)).
			Msg("Backend request failed")
		return nil, err
	}

	log.Debug().
		Str("kind", kind).
		Str("path", path).
		Str("status", result.Status).
		Dur("latency", time.Since(start)).
		Msg("Backend request succeeded")
	return result, nil
}

func (c *Client) roundTrip(ctx context.Context, path, contentType string, body io.Reader) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Principal != "" {
		req.Header.Set("X-Service-Principal", c.cfg.Principal)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &RemoteError{StatusCode: resp.StatusCode, Message: truncate(string(raw), 200)}
		}
		return nil, fmt.Errorf("%w (HTTP %d)", ErrInvalidResponse, resp.StatusCode)
	}
	result.Raw = raw

	if resp.StatusCode >= 300 || result.Status == StatusError {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: result.Message}
	}
	return &result, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
