package landmark

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrEmptySequence = errors.New("sequence has no frames")
	ErrInvalidFPS    = errors.New("fps must be positive")
)

// Player iterates over a recorded sequence at a fixed frame rate, looping
// back to the first frame after the last one. Frames are decoded lazily.
type Player struct {
	mu       sync.Mutex
	frames   [][]float64
	interval time.Duration
	pos      int
}

// NewPlayer creates a player over a private copy of seq.
func NewPlayer(seq [][]float64, fps float64) (*Player, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	if fps <= 0 {
		return nil, ErrInvalidFPS
	}

	frames := make([][]float64, len(seq))
	for i, vec := range seq {
		frames[i] = append([]float64(nil), vec...)
	}

	return &Player{
		frames:   frames,
		interval: time.Duration(float64(time.Second) / fps),
	}, nil
}

// Len returns the number of frames in the sequence.
func (p *Player) Len() int {
	return len(p.frames)
}

// Interval returns the delay between two frames.
func (p *Player) Interval() time.Duration {
	return p.interval
}

// Next decodes the current frame, returns it with its index and advances,
// wrapping to 0 after the last frame.
func (p *Player) Next() (int, Frame) {
	p.mu.Lock()
	idx := p.pos
	p.pos = (p.pos + 1) % len(p.frames)
	vec := p.frames[idx]
	p.mu.Unlock()

	return idx, Decode(vec)
}

// Reset rewinds playback to the first frame.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = 0
}

// Play calls fn with one frame per interval until ctx is done or fn
// returns an error. The first frame is delivered immediately.
// Returns nil when ctx is cancelled.
func (p *Player) Play(ctx context.Context, fn func(index int, f Frame) error) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		idx, f := p.Next()
		if err := fn(idx, f); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
