// Package capture records landmark sequences from a camera stream.
package capture

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a capture session.
type State int

const (
	// StateIdle - No session. A new one may start.
	StateIdle State = iota
	// StateCountingDown - Session started, waiting for the countdown to end.
	StateCountingDown
	// StateRecording - Frames are being appended to the sequence.
	StateRecording
	// StateReadyForReview - Sequence is frozen and may be submitted.
	StateReadyForReview
	// StateSubmitting - Sequence is being sent to the backend.
	StateSubmitting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCountingDown:
		return "COUNTING_DOWN"
	case StateRecording:
		return "RECORDING"
	case StateReadyForReview:
		return "READY_FOR_REVIEW"
	case StateSubmitting:
		return "SUBMITTING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsCapturing returns true while the capture loop owns the session
// (COUNTING_DOWN or RECORDING).
func (s State) IsCapturing() bool {
	return s == StateCountingDown || s == StateRecording
}

// Errors for invalid state transitions.
var (
	ErrSessionActive     = errors.New("capture session already in progress")
	ErrReviewPending     = errors.New("previous recording has not been submitted or reset")
	ErrNotCountingDown   = errors.New("session is not counting down")
	ErrNotReadyForReview = errors.New("no recording ready for review")
	ErrSubmitInProgress  = errors.New("submission already in progress")
)

// Lifecycle manages the state machine for the recorder's current session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → COUNTING_DOWN → RECORDING → READY_FOR_REVIEW → SUBMITTING → IDLE
//	          │               │              ▲  │               │
//	          └── Abort() ────┴──→ IDLE      │  └── Reset() ──→ IDLE
//	                                         └──── EndSubmit(false)
//
// Rules:
//   - Begin only from IDLE.
//   - Finish only from RECORDING; Abort from COUNTING_DOWN or RECORDING.
//   - Finish and Abort report whether they made the transition, so exactly
//     one caller ends a session.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	sign      string
	state     State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// SessionID returns the current or last session ID.
func (l *Lifecycle) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// Sign returns the sign label of the current or last session.
func (l *Lifecycle) Sign() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sign
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Begin starts a new session and transitions to COUNTING_DOWN.
func (l *Lifecycle) Begin(sessionID, sign string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle:
		l.sessionID = sessionID
		l.sign = sign
		l.state = StateCountingDown
		return nil
	case StateCountingDown, StateRecording:
		return ErrSessionActive
	case StateReadyForReview:
		return ErrReviewPending
	case StateSubmitting:
		return ErrSubmitInProgress
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// StartRecording transitions COUNTING_DOWN → RECORDING.
func (l *Lifecycle) StartRecording() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateCountingDown {
		return ErrNotCountingDown
	}
	l.state = StateRecording
	return nil
}

// Finish transitions RECORDING → READY_FOR_REVIEW.
// Returns true if the transition happened.
func (l *Lifecycle) Finish() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRecording {
		return false
	}
	l.state = StateReadyForReview
	return true
}

// Abort discards a capturing session and returns to IDLE.
// Returns true if the session was capturing.
func (l *Lifecycle) Abort() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.IsCapturing() {
		return false
	}
	l.state = StateIdle
	return true
}

// BeginSubmit transitions READY_FOR_REVIEW → SUBMITTING.
func (l *Lifecycle) BeginSubmit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateReadyForReview:
		l.state = StateSubmitting
		return nil
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateCountingDown, StateRecording:
		return ErrSessionActive
	default:
		return ErrNotReadyForReview
	}
}

// EndSubmit leaves SUBMITTING: to IDLE on success, back to
// READY_FOR_REVIEW otherwise.
func (l *Lifecycle) EndSubmit(ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateSubmitting {
		return
	}
	if ok {
		l.state = StateIdle
	} else {
		l.state = StateReadyForReview
	}
}

// Reset discards a recording under review and returns to IDLE.
// Idempotent when already IDLE.
func (l *Lifecycle) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle, StateReadyForReview:
		l.state = StateIdle
		return nil
	case StateSubmitting:
		return ErrSubmitInProgress
	default:
		return ErrSessionActive
	}
}
