// Package replay provides a detector adapter that plays back recorded
// vision-model output, one JSON object per line, in the raw MediaPipe
// result shape (poseLandmarks, handLandmarks, handedness).
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/service/camera"
	"sign-landmark-service/internal/service/detector"
)

// ErrNoResults is returned by Initialize when the recording is empty.
var ErrNoResults = errors.New("replay: recording has no results")

const maxLineBytes = 4 * 1024 * 1024

// Adapter replays results in order and loops at the end.
type Adapter struct {
	mu      sync.Mutex
	path    string
	open    func() (io.ReadCloser, error)
	results []detector.RawResult
	cursor  int
	closed  bool
}

var _ detector.Adapter = (*Adapter)(nil)

// New creates an adapter that reads the recording at path on Initialize.
func New(path string) *Adapter {
	return &Adapter{
		path: path,
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// NewFromReader creates an adapter reading the recording from r.
func NewFromReader(r io.Reader) *Adapter {
	return &Adapter{
		path: "<reader>",
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// Initialize loads every result of the recording. A second call is a no-op.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return detector.ErrClosed
	}
	if a.results != nil {
		return nil
	}

	rc, err := a.open()
	if err != nil {
		return fmt.Errorf("replay: open %s: %w", a.path, err)
	}
	defer rc.Close()

	var results []detector.RawResult
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r detector.RawResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("replay: %s line %d: %w", a.path, line, err)
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("replay: read %s: %w", a.path, err)
	}
	if len(results) == 0 {
		return ErrNoResults
	}

	a.results = results
	log.Info().Str("path", a.path).Int("results", len(results)).Msg("Replay detector initialized")
	return nil
}

// Detect returns the next recorded result. The frame is ignored.
func (a *Adapter) Detect(ctx context.Context, frame camera.Frame) (landmark.Detections, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return landmark.Detections{}, detector.ErrClosed
	}
	if a.results == nil {
		return landmark.Detections{}, detector.ErrNotInitialized
	}

	r := a.results[a.cursor]
	a.cursor = (a.cursor + 1) % len(a.results)
	return r.Detections(), nil
}

// Len returns the number of loaded results.
func (a *Adapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Close drops the loaded results. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.results = nil
	return nil
}
