// Package schema validates landmark payloads before they are forwarded to
// the model-serving backend.
package schema

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/models"
	"sign-landmark-service/internal/observability/metrics"
)

var (
	ErrEmptySequence = errors.New("landmark sequence is empty")
	ErrTooManyFrames = errors.New("landmark sequence has too many frames")
	ErrFrameLength   = errors.New("frame has the wrong number of values")
	ErrNonFinite     = errors.New("frame contains a non-finite value")
	ErrMissingSign   = errors.New("sign label is required")
	ErrSignTooLong   = errors.New("sign label is too long")
)

// ValidationError locates a problem inside a sequence.
type ValidationError struct {
	Frame int // -1 when the error is not about a single frame
	Index int // -1 when the error is not about a single value
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Frame < 0:
		return e.Err.Error()
	case e.Index < 0:
		return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
	default:
		return fmt.Sprintf("frame %d, value %d: %v", e.Frame, e.Index, e.Err)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SequencePayload is the JSON body carrying a recorded sequence. Clients use
// either "landmarks" or "frames" for the sequence.
type SequencePayload struct {
	Sign      string      `json:"sign,omitempty"`
	Landmarks [][]float64 `json:"landmarks,omitempty"`
	Frames    [][]float64 `json:"frames,omitempty"`
}

// Sequence returns whichever sequence field was set, preferring "landmarks".
func (p SequencePayload) Sequence() [][]float64 {
	if len(p.Landmarks) > 0 {
		return p.Landmarks
	}
	return p.Frames
}

// Limits bound accepted payloads.
type Limits struct {
	MaxFrames     int // 0 is unbounded
	MaxSignLength int // in runes, 0 is unbounded
}

// DefaultLimits allows two minutes at 60 fps.
func DefaultLimits() Limits {
	return Limits{
		MaxFrames:     7200,
		MaxSignLength: 64,
	}
}

// Validator checks sequences against the 225-value frame layout.
type Validator struct {
	limits  Limits
	metrics *metrics.Metrics
}

func New() *Validator {
	return NewWithLimits(DefaultLimits())
}

func NewWithLimits(limits Limits) *Validator {
	return &Validator{limits: limits, metrics: metrics.DefaultMetrics}
}

// ValidateSequence checks that seq is non-empty and that every frame has
// exactly landmark.VectorLen finite values.
func (v *Validator) ValidateSequence(seq [][]float64) error {
	if len(seq) == 0 {
		return v.reject("empty", &ValidationError{Frame: -1, Index: -1, Err: ErrEmptySequence})
	}
	if v.limits.MaxFrames > 0 && len(seq) > v.limits.MaxFrames {
		return v.reject("too_many_frames", &ValidationError{
			Frame: -1, Index: -1,
			Err: fmt.Errorf("%w: %d > %d", ErrTooManyFrames, len(seq), v.limits.MaxFrames),
		})
	}

	for i, vec := range seq {
		if len(vec) != landmark.VectorLen {
			return v.reject("frame_length", &ValidationError{
				Frame: i, Index: -1,
				Err: fmt.Errorf("%w: got %d, want %d", ErrFrameLength, len(vec), landmark.VectorLen),
			})
		}
		for j, x := range vec {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return v.reject("non_finite", &ValidationError{Frame: i, Index: j, Err: ErrNonFinite})
			}
		}
	}
	return nil
}

// ValidateSign checks the sign label of a contribution.
func (v *Validator) ValidateSign(sign string) error {
	if strings.TrimSpace(sign) == "" {
		return v.reject("sign", &ValidationError{Frame: -1, Index: -1, Err: ErrMissingSign})
	}
	if v.limits.MaxSignLength > 0 && utf8.RuneCountInString(sign) > v.limits.MaxSignLength {
		return v.reject("sign", &ValidationError{Frame: -1, Index: -1, Err: ErrSignTooLong})
	}
	return nil
}

// ValidateContribution checks both the sign and the sequence.
func (v *Validator) ValidateContribution(p SequencePayload) error {
	if err := v.ValidateSign(p.Sign); err != nil {
		return err
	}
	return v.ValidateSequence(p.Sequence())
}

func (v *Validator) reject(reason string, err error) error {
	v.metrics.RecordValidationError(reason)
	log.Debug().Err(err).Str("reason", reason).Msg("Landmark payload rejected")
	return err
}

// Summary describes the content of a sequence.
type Summary struct {
	Frames      int
	EmptyFrames int
	Coverage    models.SectionCoverage
}

// Summarize counts empty frames and per-section coverage.
func Summarize(seq [][]float64) Summary {
	s := Summary{Frames: len(seq)}
	for _, vec := range seq {
		if landmark.IsZeroVector(vec) {
			s.EmptyFrames++
			continue
		}
		f := landmark.Decode(vec)
		if landmark.HasData(f.Pose[:]) {
			s.Coverage.Pose++
		}
		if landmark.HasData(f.LeftHand[:]) {
			s.Coverage.LeftHand++
		}
		if landmark.HasData(f.RightHand[:]) {
			s.Coverage.RightHand++
		}
	}
	return s
}
