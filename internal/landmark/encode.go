package landmark

import "strings"

const (
	labelLeft  = "left"
	labelRight = "right"
)

// HandednessFallback selects what happens to a hand whose label is neither
// "left" nor "right".
type HandednessFallback int

const (
	// FallbackDrop discards hands with a missing or unknown label.
	FallbackDrop HandednessFallback = iota
	// FallbackAssumeLeft places a lone unlabeled hand in the left section.
	// It only applies when the frame has exactly one hand. Some older
	// serving models were trained on data produced this way.
	FallbackAssumeLeft
)

// ParseHandednessFallback maps a config value to a fallback policy.
// Unknown values yield FallbackDrop.
func ParseHandednessFallback(s string) HandednessFallback {
	if strings.EqualFold(s, labelLeft) || strings.EqualFold(s, "assume_left") {
		return FallbackAssumeLeft
	}
	return FallbackDrop
}

// String returns the config name of the policy.
func (f HandednessFallback) String() string {
	if f == FallbackAssumeLeft {
		return labelLeft
	}
	return "drop"
}

// EncodeStats describes how one frame was encoded.
type EncodeStats struct {
	PosePresent    bool
	LeftPresent    bool
	RightPresent   bool
	DroppedHands   int // hands discarded for a missing or unknown label
	DuplicateSides int // hands that overwrote an earlier hand on the same side
}

// Empty reports whether nothing was written to the vector.
func (s EncodeStats) Empty() bool {
	return !s.PosePresent && !s.LeftPresent && !s.RightPresent
}

// Encoder converts detections to encoded frame vectors.
// The zero value uses FallbackDrop.
type Encoder struct {
	Fallback HandednessFallback
}

// Encode converts one frame of detections to a 225-value vector using the
// drop policy for unlabeled hands. It never fails: absent sections are zero.
func Encode(d Detections) []float64 {
	vec, _ := Encoder{}.EncodeWithStats(d)
	return vec
}

// Encode is EncodeWithStats without the stats.
func (e Encoder) Encode(d Detections) []float64 {
	vec, _ := e.EncodeWithStats(d)
	return vec
}

// EncodeWithStats converts detections to a vector and reports which
// sections were filled and how many hands were discarded.
//
// Hands are assigned by case-insensitive label. When two hands claim the
// same side the later one in input order wins.
func (e Encoder) EncodeWithStats(d Detections) ([]float64, EncodeStats) {
	vec := make([]float64, VectorLen)
	var stats EncodeStats

	if d.Pose != nil {
		writeKeypoints(vec[SectionPose.Offset():], d.Pose[:])
		stats.PosePresent = true
	}

	handCount := 0
	for _, h := range d.Hands {
		if h != nil {
			handCount++
		}
	}

	for _, h := range d.Hands {
		if h == nil {
			continue
		}

		var side Section
		switch label := h.Handedness.Label; {
		case strings.EqualFold(label, labelLeft):
			side = SectionLeftHand
		case strings.EqualFold(label, labelRight):
			side = SectionRightHand
		case e.Fallback == FallbackAssumeLeft && handCount == 1:
			side = SectionLeftHand
		default:
			stats.DroppedHands++
			continue
		}

		if side == SectionLeftHand {
			if stats.LeftPresent {
				stats.DuplicateSides++
			}
			stats.LeftPresent = true
		} else {
			if stats.RightPresent {
				stats.DuplicateSides++
			}
			stats.RightPresent = true
		}
		writeKeypoints(vec[side.Offset():], h.Points[:])
	}

	return vec, stats
}

func writeKeypoints(dst []float64, points []Keypoint) {
	for i, p := range points {
		dst[i*Components] = p.X
		dst[i*Components+1] = p.Y
		dst[i*Components+2] = p.Z
	}
}

// ZeroVector returns an all-zero encoded frame, used in place of a frame
// whose detection failed.
func ZeroVector() []float64 {
	return make([]float64, VectorLen)
}

// IsZeroVector reports whether every value of vec is zero.
func IsZeroVector(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
