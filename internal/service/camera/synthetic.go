package camera

import (
	"context"
	"sync"
	"time"
)

// SyntheticSource produces blank frames for headless capture sessions.
// Frame content is irrelevant when the detector is scripted or replayed.
type SyntheticSource struct {
	Width   int
	Height  int
	Devices []string // empty means any device ID is accepted
	Deny    bool     // simulate a denied permission prompt

	mu     sync.Mutex
	opened int
}

// NewSyntheticSource returns a 640×480 source accepting any device.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{Width: 640, Height: 480}
}

// Open opens a synthetic stream.
func (s *SyntheticSource) Open(ctx context.Context, deviceID string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Deny {
		return nil, ErrPermissionDenied
	}
	if len(s.Devices) > 0 && !contains(s.Devices, deviceID) {
		return nil, ErrDeviceNotFound
	}

	s.mu.Lock()
	s.opened++
	s.mu.Unlock()

	return &syntheticStream{width: s.Width, height: s.Height}, nil
}

// Opened returns how many streams were opened.
func (s *SyntheticSource) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

type syntheticStream struct {
	mu     sync.Mutex
	width  int
	height int
	seq    uint64
	closed bool
}

func (s *syntheticStream) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, ErrStreamClosed
	}
	s.seq++
	return Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     s.width,
		Height:    s.height,
	}, nil
}

func (s *syntheticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
