// Package landmark defines the fixed-width landmark vector shared by the
// capture pipeline and the remote classifier, and the encoder/decoder for it.
//
// An encoded frame is 225 float64 values laid out as three contiguous
// sections that never move:
//
//	[  0,  99)  pose        33 keypoints × (x, y, z)
//	[ 99, 162)  left hand   21 keypoints × (x, y, z)
//	[162, 225)  right hand  21 keypoints × (x, y, z)
//
// An absent section is zero-filled in place.
package landmark

import (
	"fmt"
	"math"
	"strings"
)

const (
	// PoseLandmarks is the number of body keypoints per pose detection.
	PoseLandmarks = 33
	// HandLandmarks is the number of keypoints per hand detection.
	HandLandmarks = 21
	// Components is the number of values stored per keypoint.
	Components = 3
	// MaxHands is the number of hand slots a frame can carry.
	MaxHands = 2

	poseLen = PoseLandmarks * Components
	handLen = HandLandmarks * Components

	// VectorLen is the length of an encoded frame vector.
	VectorLen = poseLen + 2*handLen
)

// Hand landmark indices (MediaPipe hand topology).
const (
	Wrist     = 0
	ThumbCMC  = 1
	ThumbMCP  = 2
	ThumbIP   = 3
	ThumbTip  = 4
	IndexMCP  = 5
	IndexPIP  = 6
	IndexDIP  = 7
	IndexTip  = 8
	MiddleMCP = 9
	MiddlePIP = 10
	MiddleDIP = 11
	MiddleTip = 12
	RingMCP   = 13
	RingPIP   = 14
	RingDIP   = 15
	RingTip   = 16
	PinkyMCP  = 17
	PinkyPIP  = 18
	PinkyDIP  = 19
	PinkyTip  = 20
)

// Keypoint is a normalized landmark coordinate. X and Y are relative to the
// frame width and height, Z is a relative depth estimate.
// (0, 0, 0) means "not detected".
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether k is the absent sentinel.
func (k Keypoint) IsZero() bool {
	return k.X == 0 && k.Y == 0 && k.Z == 0
}

// Sanitized returns k with non-finite components replaced by 0.
func (k Keypoint) Sanitized() Keypoint {
	return Keypoint{X: finite(k.X), Y: finite(k.Y), Z: finite(k.Z)}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// PoseFrame holds the 33 index-stable body keypoints of one detection.
type PoseFrame [PoseLandmarks]Keypoint

// HandFrame holds the 21 index-stable keypoints of one hand detection.
type HandFrame [HandLandmarks]Keypoint

// Handedness is the left/right classification attached to a hand detection.
// Label is compared case-insensitively against "left" and "right".
type Handedness struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Known reports whether the label names a side.
func (h Handedness) Known() bool {
	return strings.EqualFold(h.Label, labelLeft) || strings.EqualFold(h.Label, labelRight)
}

// HandDetection pairs a hand's keypoints with its handedness classification.
type HandDetection struct {
	Points     HandFrame  `json:"points"`
	Handedness Handedness `json:"handedness"`
}

// Detections is one frame of detector output. A nil Pose or nil hand slot
// means nothing was detected there. Hands are kept in detector order.
type Detections struct {
	Pose  *PoseFrame
	Hands [MaxHands]*HandDetection
}

// Section identifies one of the three fixed regions of an encoded vector.
type Section int

const (
	SectionPose Section = iota
	SectionLeftHand
	SectionRightHand
)

// Sections lists every section in layout order.
var Sections = [...]Section{SectionPose, SectionLeftHand, SectionRightHand}

// String returns the string representation of the section.
func (s Section) String() string {
	switch s {
	case SectionPose:
		return "pose"
	case SectionLeftHand:
		return "left_hand"
	case SectionRightHand:
		return "right_hand"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Offset returns the index of the first value of the section.
func (s Section) Offset() int {
	switch s {
	case SectionPose:
		return 0
	case SectionLeftHand:
		return poseLen
	case SectionRightHand:
		return poseLen + handLen
	default:
		return -1
	}
}

// Len returns the number of values in the section.
func (s Section) Len() int {
	switch s {
	case SectionPose:
		return poseLen
	case SectionLeftHand, SectionRightHand:
		return handLen
	default:
		return 0
	}
}

// Keypoints returns the number of keypoints in the section.
func (s Section) Keypoints() int {
	return s.Len() / Components
}
