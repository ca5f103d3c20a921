package capture

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/observability/logging"
	"sign-landmark-service/internal/observability/metrics"
	"sign-landmark-service/internal/service/backend"
	"sign-landmark-service/internal/service/camera"
	"sign-landmark-service/internal/service/detector"
)

var (
	ErrCameraUnavailable   = errors.New("camera unavailable: check that camera access is allowed")
	ErrNoLandmarksDetected = errors.New("no landmarks detected")
	ErrNoRecording         = backend.ErrEmptySequence
	ErrClosed              = errors.New("recorder closed")
)

// Reasons a session ends, used as metric labels.
const (
	reasonDuration  = "duration"
	reasonMaxFrames = "max_frames"
	reasonStopped   = "stopped"
	reasonCanceled  = "canceled"
	reasonClosed    = "closed"
)

// Submitter sends a recorded sequence to the backend.
type Submitter interface {
	SubmitLandmarks(ctx context.Context, sign string, seq [][]float64) (*backend.Result, error)
}

// FrameFunc receives each encoded vector as it is appended, for live
// preview. It runs on the capture goroutine and must not block.
type FrameFunc func(index int, vec []float64)

// Options configure a Recorder.
type Options struct {
	DeviceID     string
	Countdown    time.Duration // 0 starts recording immediately
	Duration     time.Duration // 0 records until Stop or MaxFrames
	MaxFrames    int           // 0 is unbounded
	TickInterval time.Duration

	// Ticker defaults to NewIntervalTicker, After to time.After.
	Ticker  TickerFunc
	After   func(time.Duration) <-chan time.Time
	OnFrame FrameFunc
	Encoder landmark.Encoder
	IDs     *Generator
}

// DefaultOptions returns the default capture timing: a 3s countdown, 5s of
// recording at 60 ticks per second.
func DefaultOptions() Options {
	return Options{
		Countdown:    3 * time.Second,
		Duration:     5 * time.Second,
		TickInterval: time.Second / 60,
	}
}

// Recorder runs capture sessions: it owns the recorded sequence, the
// capture goroutine and the session state machine. One session at a time.
type Recorder struct {
	cameras   *camera.Manager
	detector  detector.Adapter
	submitter Submitter
	opts      Options
	lifecycle *Lifecycle
	metrics   *metrics.Metrics

	// opMu serializes control operations. The capture goroutine never takes it.
	opMu     sync.Mutex
	cancel   context.CancelFunc
	loopDone chan struct{}
	closed   bool

	mu          sync.Mutex
	sequence    [][]float64
	done        chan struct{}
	recordingAt time.Time
	logger      zerolog.Logger
}

// NewRecorder creates a recorder. The detector is owned by the caller.
func NewRecorder(cameras *camera.Manager, det detector.Adapter, submitter Submitter, opts Options) *Recorder {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.Ticker == nil {
		opts.Ticker = NewIntervalTicker
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.IDs == nil {
		opts.IDs = NewGenerator("")
	}

	done := make(chan struct{})
	close(done)

	return &Recorder{
		cameras:   cameras,
		detector:  det,
		submitter: submitter,
		opts:      opts,
		lifecycle: NewLifecycle(),
		metrics:   metrics.DefaultMetrics,
		done:      done,
		logger:    log.Logger,
	}
}

// Start acquires the camera and begins a session for sign. The capture loop
// runs until the duration or frame budget is reached, or until Stop, Cancel
// or Close. ctx bounds camera and detector start-up only.
func (r *Recorder) Start(ctx context.Context, sign string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if r.closed {
		return ErrClosed
	}

	sessionID := r.opts.IDs.Next(sign)
	if err := r.lifecycle.Begin(sessionID, sign); err != nil {
		return err
	}
	logger := logging.WithSession(sessionID, sign)

	// a loop that ended on its own may still be releasing the camera
	r.waitLoop()

	stream, err := r.cameras.Acquire(ctx, r.opts.DeviceID)
	if err != nil {
		r.lifecycle.Abort()
		r.metrics.RecordCameraFailure()
		logger.Warn().Err(err).Str("device", r.opts.DeviceID).Msg("Camera acquisition failed")
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	if err := r.detector.Initialize(ctx); err != nil {
		r.lifecycle.Abort()
		r.releaseCamera()
		logger.Error().Err(err).Msg("Detector initialization failed")
		return fmt.Errorf("initialize detector: %w", err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.sequence = nil
	r.recordingAt = time.Time{}
	r.done = done
	r.logger = logger
	r.mu.Unlock()

	if r.opts.Countdown <= 0 {
		r.beginRecording()
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	r.cancel = cancel
	r.loopDone = loopDone

	r.metrics.RecordSessionStart()
	logger.Info().
		Dur("countdown", r.opts.Countdown).
		Dur("duration", r.opts.Duration).
		Int("maxFrames", r.opts.MaxFrames).
		Msg("Capture session started")

	go r.run(loopCtx, stream, loopDone)
	return nil
}

// Stop ends the current session. A recording moves to READY_FOR_REVIEW; a
// session still counting down is discarded. Calling Stop when nothing is
// capturing changes nothing.
//
// Stop returns ErrNoLandmarksDetected when every recorded frame is empty,
// including for a session that already ended on its duration or frame
// budget. The session is still ready for review in that case.
func (r *Recorder) Stop() error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.lifecycle.State().IsCapturing() {
		return r.Err()
	}
	r.haltLoop()
	r.releaseCamera()

	switch r.lifecycle.State() {
	case StateCountingDown:
		r.abort(reasonStopped)
		return nil
	case StateRecording:
		r.finish(reasonStopped)
	}
	return r.Err()
}

// Cancel discards the current session and returns to IDLE. No-op when
// nothing is capturing.
func (r *Recorder) Cancel() {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.lifecycle.State().IsCapturing() {
		return
	}
	r.haltLoop()
	r.releaseCamera()
	r.abort(reasonCanceled)
}

// Submit sends the recorded sequence to the backend. On success the
// recorder returns to IDLE; on failure the recording is kept for a retry.
// Control operations are not blocked while the request is in flight; the
// SUBMITTING state rejects the ones that would touch the recording.
func (r *Recorder) Submit(ctx context.Context) (*backend.Result, error) {
	seq, err := r.beginSubmit()
	if err != nil {
		return nil, err
	}

	logger := r.sessionLogger()
	result, err := r.submitter.SubmitLandmarks(ctx, r.lifecycle.Sign(), seq)
	if err != nil {
		r.lifecycle.EndSubmit(false)
		logger.Warn().Err(err).Int("frames", len(seq)).Msg("Submission failed, recording kept for retry")
		return nil, err
	}

	// cleared before IDLE so a session started right after keeps its frames
	r.mu.Lock()
	r.sequence = nil
	r.lifecycle.EndSubmit(true)
	r.mu.Unlock()

	logger.Info().Int("frames", len(seq)).Str("status", result.Status).Msg("Recording submitted")
	return result, nil
}

func (r *Recorder) beginSubmit() ([][]float64, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	state := r.lifecycle.State()
	seq := r.Sequence()
	if state == StateIdle || (state == StateReadyForReview && len(seq) == 0) {
		return nil, ErrNoRecording
	}
	if err := r.lifecycle.BeginSubmit(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Reset discards a recording under review and returns to IDLE.
func (r *Recorder) Reset() error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if err := r.lifecycle.Reset(); err != nil {
		return err
	}
	r.mu.Lock()
	r.sequence = nil
	r.mu.Unlock()
	return nil
}

// SetDevice switches the camera device used by future sessions. The
// current stream is released first.
func (r *Recorder) SetDevice(deviceID string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if r.lifecycle.State().IsCapturing() {
		return ErrSessionActive
	}
	r.waitLoop()
	r.releaseCamera()
	r.opts.DeviceID = deviceID
	return nil
}

// Close cancels any session, waits for the capture loop and releases the
// camera. The recorder cannot be started again.
func (r *Recorder) Close() error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.haltLoop()
	err := r.cameras.Release()
	r.abort(reasonClosed)
	return err
}

// Sequence returns a copy of the recorded sequence.
func (r *Recorder) Sequence() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]float64, len(r.sequence))
	for i, vec := range r.sequence {
		out[i] = slices.Clone(vec)
	}
	return out
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sequence)
}

// State returns the current session state.
func (r *Recorder) State() State {
	return r.lifecycle.State()
}

// SessionID returns the current or last session ID.
func (r *Recorder) SessionID() string {
	return r.lifecycle.SessionID()
}

// Sign returns the sign label of the current or last session.
func (r *Recorder) Sign() string {
	return r.lifecycle.Sign()
}

// Done returns a channel closed when the current session stops capturing.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err reports ErrNoLandmarksDetected when a recording is under review and
// none of its frames has data. A recording with no frames is left to
// Submit, which rejects it with ErrNoRecording.
func (r *Recorder) Err() error {
	if s := r.lifecycle.State(); s != StateReadyForReview && s != StateSubmitting {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sequence) == 0 {
		return nil
	}
	for _, vec := range r.sequence {
		if !landmark.IsZeroVector(vec) {
			return nil
		}
	}
	return ErrNoLandmarksDetected
}

func (r *Recorder) run(ctx context.Context, stream camera.Stream, loopDone chan struct{}) {
	defer close(loopDone)

	if r.opts.Countdown > 0 {
		select {
		case <-ctx.Done():
			return
		case <-r.opts.After(r.opts.Countdown):
		}
		if !r.beginRecording() {
			return
		}
	}

	ticker := r.opts.Ticker(r.opts.TickInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if r.opts.Duration > 0 {
		deadline = r.opts.After(r.opts.Duration)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			r.endFromLoop(reasonDuration)
			return
		case <-ticker.C():
			n, ok := r.captureFrame(ctx, stream)
			if !ok {
				return
			}
			if r.opts.MaxFrames > 0 && n >= r.opts.MaxFrames {
				r.endFromLoop(reasonMaxFrames)
				return
			}
		}
	}
}

func (r *Recorder) beginRecording() bool {
	if err := r.lifecycle.StartRecording(); err != nil {
		return false
	}
	r.mu.Lock()
	r.recordingAt = time.Now()
	r.mu.Unlock()
	return true
}

// endFromLoop finishes a session that reached its duration or frame budget.
// Ticks have stopped by the time the camera is released.
func (r *Recorder) endFromLoop(reason string) {
	r.releaseCamera()
	r.finish(reason)
}

// captureFrame reads, detects, encodes and appends one frame. It returns
// the new sequence length, or false if the session was cancelled meanwhile.
func (r *Recorder) captureFrame(ctx context.Context, stream camera.Stream) (int, bool) {
	start := time.Now()
	vec := r.processFrame(ctx, stream)
	if ctx.Err() != nil {
		return 0, false
	}

	r.mu.Lock()
	r.sequence = append(r.sequence, vec)
	n := len(r.sequence)
	r.mu.Unlock()

	r.metrics.RecordFrame(time.Since(start).Seconds())
	if r.opts.OnFrame != nil {
		r.opts.OnFrame(n-1, slices.Clone(vec))
	}
	return n, true
}

// processFrame never fails: camera and detector errors, and detector
// panics, yield an all-zero vector.
func (r *Recorder) processFrame(ctx context.Context, stream camera.Stream) (vec []float64) {
	logger := r.sessionLogger()

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("Detector panicked, frame replaced with zeros")
			r.metrics.RecordFrameDropped("detector_panic")
			vec = landmark.ZeroVector()
		}
	}()

	frame, err := stream.ReadFrame(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Debug().Err(err).Msg("Camera read failed")
			r.metrics.RecordFrameDropped("camera_read")
		}
		return landmark.ZeroVector()
	}

	d, err := r.detector.Detect(ctx, frame)
	if err != nil {
		logger.Debug().Err(err).Uint64("frameSeq", frame.Seq).Msg("Detection failed")
		r.metrics.RecordFrameDropped("detector_error")
		return landmark.ZeroVector()
	}

	vec, stats := r.opts.Encoder.EncodeWithStats(d)
	if stats.DroppedHands > 0 || stats.DuplicateSides > 0 {
		logger.Debug().
			Uint64("frameSeq", frame.Seq).
			Int("droppedHands", stats.DroppedHands).
			Int("duplicateSides", stats.DuplicateSides).
			Msg("Ambiguous handedness")
		r.metrics.RecordHandsDropped("unknown_label", stats.DroppedHands)
		r.metrics.RecordHandsDropped("duplicate_side", stats.DuplicateSides)
	}
	return vec
}

func (r *Recorder) finish(reason string) {
	if !r.lifecycle.Finish() {
		return
	}
	frames := r.sessionEnded(reason)

	logger := r.sessionLogger()
	if err := r.Err(); err != nil {
		r.metrics.RecordEmptyRecording()
		logger.Warn().Int("frames", frames).Str("reason", reason).Msg("Recording finished without landmarks")
		return
	}
	logger.Info().Int("frames", frames).Str("reason", reason).Msg("Recording ready for review")
}

func (r *Recorder) abort(reason string) {
	if !r.lifecycle.Abort() {
		return
	}
	r.sessionEnded(reason)

	r.mu.Lock()
	r.sequence = nil
	r.mu.Unlock()

	r.sessionLogger().Info().Str("reason", reason).Msg("Capture session discarded")
}

// sessionEnded records metrics and closes Done. Called once per session by
// whichever of finish or abort won the transition.
func (r *Recorder) sessionEnded(reason string) int {
	r.mu.Lock()
	frames := len(r.sequence)
	var elapsed time.Duration
	if !r.recordingAt.IsZero() {
		elapsed = time.Since(r.recordingAt)
	}
	done := r.done
	r.mu.Unlock()

	r.metrics.RecordSessionEnd(reason, frames, elapsed.Seconds())
	close(done)
	return frames
}

// haltLoop cancels the capture goroutine and waits for it to exit.
func (r *Recorder) haltLoop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.waitLoop()
}

func (r *Recorder) waitLoop() {
	if r.loopDone != nil {
		<-r.loopDone
	}
}

func (r *Recorder) releaseCamera() {
	if err := r.cameras.Release(); err != nil {
		r.sessionLogger().Warn().Err(err).Msg("Error releasing camera")
	}
}

func (r *Recorder) sessionLogger() *zerolog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.logger
	return &l
}
