// Package camera manages exclusive ownership of the video stream a capture
// session reads frames from.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Errors returned by sources and the manager.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera device not found")
	ErrStreamClosed     = errors.New("camera stream closed")
)

// Frame is one image read from a stream.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Pixels    []byte // RGBA, may be empty for synthetic streams
}

// Stream yields frames from an opened device.
type Stream interface {
	// ReadFrame returns the next frame. It blocks until one is available.
	ReadFrame(ctx context.Context) (Frame, error)

	// Close releases the device. Idempotent.
	Close() error
}

// Source opens streams on camera devices.
type Source interface {
	Open(ctx context.Context, deviceID string) (Stream, error)
}

// Manager holds at most one open stream. Acquiring a different device
// closes the previous stream before the new one is opened.
type Manager struct {
	mu     sync.Mutex
	source Source
	stream Stream
	device string
}

// NewManager creates a manager over the given source.
func NewManager(source Source) *Manager {
	return &Manager{source: source}
}

// Acquire returns a stream on deviceID, reusing the current one when it is
// already open on that device.
func (m *Manager) Acquire(ctx context.Context, deviceID string) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil && m.device == deviceID {
		return m.stream, nil
	}
	if err := m.releaseLocked(); err != nil {
		log.Warn().Err(err).Str("device", m.device).Msg("Error closing previous camera stream")
	}

	stream, err := m.source.Open(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", deviceID, err)
	}

	m.stream = stream
	m.device = deviceID
	log.Debug().Str("device", deviceID).Msg("Camera stream acquired")
	return stream, nil
}

// Release closes the current stream, if any.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked()
}

func (m *Manager) releaseLocked() error {
	if m.stream == nil {
		return nil
	}
	err := m.stream.Close()
	log.Debug().Str("device", m.device).Msg("Camera stream released")
	m.stream = nil
	m.device = ""
	return err
}

// Device returns the device of the open stream, or "" when none is open.
func (m *Manager) Device() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}
