package capture

import (
	"sync"
	"time"
)

// Ticker delivers capture ticks. The loop receives from C and processes the
// tick fully before receiving again.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker for the given interval.
type TickerFunc func(interval time.Duration) Ticker

// NewIntervalTicker returns a Ticker backed by time.Ticker.
func NewIntervalTicker(interval time.Duration) Ticker {
	return &intervalTicker{t: time.NewTicker(interval)}
}

type intervalTicker struct {
	t *time.Ticker
}

func (t *intervalTicker) C() <-chan time.Time { return t.t.C }
func (t *intervalTicker) Stop()               { t.t.Stop() }

// ManualTicker is a Ticker driven by explicit Tick calls, for running the
// capture loop headlessly. It is re-armed each time Func hands it out, so
// one instance can drive several sessions.
type ManualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped chan struct{}
}

// NewManualTicker creates a manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

// Func returns a TickerFunc that hands out this ticker.
func (t *ManualTicker) Func() TickerFunc {
	return func(time.Duration) Ticker {
		t.mu.Lock()
		defer t.mu.Unlock()
		select {
		case <-t.stopped:
			t.stopped = make(chan struct{})
		default:
		}
		return t
	}
}

// Tick blocks until the loop receives the tick. It returns false if the
// ticker was stopped first.
func (t *ManualTicker) Tick() bool {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()

	select {
	case t.c <- time.Now():
		return true
	case <-stopped:
		return false
	}
}

func (t *ManualTicker) C() <-chan time.Time { return t.c }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.stopped:
	default:
		close(t.stopped)
	}
}
