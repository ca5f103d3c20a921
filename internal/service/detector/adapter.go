// Package detector defines the interface for keypoint detector adapters.
package detector

import (
	"context"
	"errors"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/service/camera"
)

var (
	ErrNotInitialized = errors.New("detector not initialized")
	ErrClosed         = errors.New("detector closed")
)

// Adapter wraps a pose and hand keypoint model (MediaPipe, ONNX, replayed
// output, etc.). Instances are owned by the caller: Initialize before the
// first Detect, Close when done.
type Adapter interface {
	// Initialize loads the model. Safe to call more than once.
	Initialize(ctx context.Context) error

	// Detect runs the model on one frame. A frame without people is not an
	// error: it yields empty Detections.
	Detect(ctx context.Context, frame camera.Frame) (landmark.Detections, error)

	// Close releases model resources.
	Close() error
}
