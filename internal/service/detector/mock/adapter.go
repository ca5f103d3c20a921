// Package mock provides a scripted detector adapter for running capture
// sessions without a vision model. It produces a standing pose with hands
// moving along simple paths, and can inject failures at fixed intervals.
package mock

import (
	"context"
	"errors"
	"math"
	"sync"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/service/camera"
	"sign-landmark-service/internal/service/detector"
)

// ErrInjected is returned by Detect on frames selected by Options.FailEvery.
var ErrInjected = errors.New("mock detector: injected failure")

// Gesture describes which hands are visible and how they move.
type Gesture struct {
	Name       string
	LeftHand   bool
	RightHand  bool
	Radius     float64 // radius of the circular hand path
	Period     int     // frames per revolution
	LeftLabel  string  // handedness label reported for the left hand
	RightLabel string  // handedness label reported for the right hand
}

// DefaultGestures are the built-in gestures. The first one is used when
// Options.Gesture is nil.
var DefaultGestures = []Gesture{
	{Name: "hello", RightHand: true, Radius: 0.05, Period: 30, RightLabel: "Right"},
	{Name: "thank-you", LeftHand: true, RightHand: true, Radius: 0.08, Period: 45, LeftLabel: "Left", RightLabel: "Right"},
	{Name: "yes", RightHand: true, Radius: 0.02, Period: 15, RightLabel: "right"},
	{Name: "please", LeftHand: true, Radius: 0.04, Period: 40, LeftLabel: "LEFT"},
}

// Options tune the mock adapter.
type Options struct {
	Gesture *Gesture // nil selects DefaultGestures[0]

	// FailEvery makes every Nth Detect call return ErrInjected (0 disables).
	FailEvery int
	// PanicEvery makes every Nth Detect call panic (0 disables).
	PanicEvery int
	// EmptyEvery makes every Nth Detect call return no detections (0 disables).
	EmptyEvery int
	// UnlabeledEvery strips the handedness label on every Nth call (0 disables).
	UnlabeledEvery int
}

// Adapter implements detector.Adapter with synthetic keypoints.
type Adapter struct {
	mu          sync.Mutex
	opts        Options
	gesture     Gesture
	initialized bool
	closed      bool
	calls       int
}

var _ detector.Adapter = (*Adapter)(nil)

// New creates a mock adapter.
func New(opts Options) *Adapter {
	g := DefaultGestures[0]
	if opts.Gesture != nil {
		g = *opts.Gesture
	}
	if g.Period <= 0 {
		g.Period = 30
	}
	return &Adapter{opts: opts, gesture: g}
}

// GestureByName returns the default gesture with the given name.
func GestureByName(name string) (Gesture, bool) {
	for _, g := range DefaultGestures {
		if g.Name == name {
			return g, true
		}
	}
	return Gesture{}, false
}

// Initialize marks the adapter ready.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return detector.ErrClosed
	}
	a.initialized = true
	return nil
}

// Detect returns synthetic detections for the frame.
func (a *Adapter) Detect(ctx context.Context, frame camera.Frame) (landmark.Detections, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return landmark.Detections{}, detector.ErrClosed
	}
	if !a.initialized {
		return landmark.Detections{}, detector.ErrNotInitialized
	}

	a.calls++
	n := a.calls

	if every(a.opts.PanicEvery, n) {
		panic("mock detector: injected panic")
	}
	if every(a.opts.FailEvery, n) {
		return landmark.Detections{}, ErrInjected
	}
	if every(a.opts.EmptyEvery, n) {
		return landmark.Detections{}, nil
	}

	unlabeled := every(a.opts.UnlabeledEvery, n)
	return a.gesture.detections(frame.Seq, unlabeled), nil
}

// Calls returns how many times Detect ran past the lifecycle checks.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Close releases the adapter. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func every(n, call int) bool {
	return n > 0 && call%n == 0
}

func (g Gesture) detections(seq uint64, unlabeled bool) landmark.Detections {
	phase := 2 * math.Pi * float64(seq%uint64(g.Period)) / float64(g.Period)
	sway := 0.01 * math.Sin(phase)

	var pose landmark.PoseFrame
	for i := range pose {
		pose[i] = landmark.Keypoint{
			X: 0.5 + sway + 0.01*float64(i%5-2),
			Y: 0.2 + 0.02*float64(i),
			Z: -0.1 + 0.005*float64(i%7),
		}
	}

	d := landmark.Detections{Pose: &pose}
	slot := 0
	if g.RightHand {
		d.Hands[slot] = hand(0.35+g.Radius*math.Cos(phase), 0.45+g.Radius*math.Sin(phase), label(g.RightLabel, unlabeled))
		slot++
	}
	if g.LeftHand {
		d.Hands[slot] = hand(0.65-g.Radius*math.Cos(phase), 0.45+g.Radius*math.Sin(phase), label(g.LeftLabel, unlabeled))
	}
	return d
}

func label(l string, unlabeled bool) string {
	if unlabeled {
		return ""
	}
	return l
}

func hand(cx, cy float64, lbl string) *landmark.HandDetection {
	h := &landmark.HandDetection{Handedness: landmark.Handedness{Label: lbl, Score: 0.95}}
	for i := range h.Points {
		finger := float64(i / 4)
		joint := float64(i % 4)
		h.Points[i] = landmark.Keypoint{
			X: cx + 0.01*(finger-2),
			Y: cy - 0.012*joint,
			Z: -0.002 * joint,
		}
	}
	return h
}
