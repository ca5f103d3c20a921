package landmark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformPose(x, y, z float64) *PoseFrame {
	var p PoseFrame
	for i := range p {
		p[i] = Keypoint{X: x, Y: y, Z: z}
	}
	return &p
}

func uniformHand(label string, x, y, z float64) *HandDetection {
	h := &HandDetection{Handedness: Handedness{Label: label, Score: 0.9}}
	for i := range h.Points {
		h.Points[i] = Keypoint{X: x, Y: y, Z: z}
	}
	return h
}

func indexedPose() *PoseFrame {
	var p PoseFrame
	for i := range p {
		p[i] = Keypoint{X: float64(i) / 100, Y: float64(i) / 50, Z: -float64(i) / 1000}
	}
	return &p
}

func indexedHand(label string, base float64) *HandDetection {
	h := &HandDetection{Handedness: Handedness{Label: label}}
	for i := range h.Points {
		h.Points[i] = Keypoint{X: base + float64(i)/100, Y: base + float64(i)/200, Z: float64(i) / 1000}
	}
	return h
}

func assertZero(t *testing.T, vec []float64, s Section) {
	t.Helper()
	for i := s.Offset(); i < s.Offset()+s.Len(); i++ {
		if vec[i] != 0 {
			t.Fatalf("expected %s section to be zero, index %d = %v", s, i, vec[i])
		}
	}
}

func TestLayout(t *testing.T) {
	assert.Equal(t, 225, VectorLen)
	assert.Equal(t, 0, SectionPose.Offset())
	assert.Equal(t, 99, SectionPose.Len())
	assert.Equal(t, 99, SectionLeftHand.Offset())
	assert.Equal(t, 63, SectionLeftHand.Len())
	assert.Equal(t, 162, SectionRightHand.Offset())
	assert.Equal(t, 63, SectionRightHand.Len())
	assert.Equal(t, VectorLen, SectionRightHand.Offset()+SectionRightHand.Len())
	assert.Equal(t, 33, SectionPose.Keypoints())
	assert.Equal(t, 21, SectionLeftHand.Keypoints())
}

func TestSection_String(t *testing.T) {
	tests := []struct {
		section  Section
		expected string
	}{
		{SectionPose, "pose"},
		{SectionLeftHand, "left_hand"},
		{SectionRightHand, "right_hand"},
		{Section(7), "UNKNOWN(7)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.section.String())
	}
}

func TestEncode_Empty(t *testing.T) {
	vec := Encode(Detections{})

	require.Len(t, vec, VectorLen)
	assert.True(t, IsZeroVector(vec))
}

func TestEncode_PoseOnly(t *testing.T) {
	pose := indexedPose()
	vec := Encode(Detections{Pose: pose})

	require.Len(t, vec, VectorLen)
	for i, kp := range pose {
		assert.Equal(t, kp.X, vec[i*3])
		assert.Equal(t, kp.Y, vec[i*3+1])
		assert.Equal(t, kp.Z, vec[i*3+2])
	}
	assertZero(t, vec, SectionLeftHand)
	assertZero(t, vec, SectionRightHand)
}

func TestEncode_PoseAndRightHandScenario(t *testing.T) {
	vec := Encode(Detections{
		Pose:  uniformPose(0.5, 0.5, 0),
		Hands: [MaxHands]*HandDetection{uniformHand("right", 0.1, 0.1, 0)},
	})

	for i := 0; i < 99; i += 3 {
		assert.Equal(t, []float64{0.5, 0.5, 0}, vec[i:i+3])
	}
	assertZero(t, vec, SectionLeftHand)
	for i := 162; i < 225; i += 3 {
		assert.Equal(t, []float64{0.1, 0.1, 0}, vec[i:i+3])
	}
}

func TestEncode_HandednessCaseInsensitive(t *testing.T) {
	for _, label := range []string{"Left", "LEFT", "left", "lEfT"} {
		t.Run(label, func(t *testing.T) {
			vec := Encode(Detections{Hands: [MaxHands]*HandDetection{uniformHand(label, 0.3, 0.3, 0.3)}})
			assert.Equal(t, 0.3, vec[SectionLeftHand.Offset()])
			assertZero(t, vec, SectionRightHand)
			assert.True(t, Handedness{Label: label}.Known())
		})
	}
}

func TestEncode_UnknownLabelsDropped(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{"missing", ""},
		{"unknown", "ambidextrous"},
		{"padded", " left "},
		{"prefix", "leftish"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, stats := Encoder{}.EncodeWithStats(Detections{
				Hands: [MaxHands]*HandDetection{uniformHand(tt.label, 0.4, 0.4, 0)},
			})
			assert.True(t, IsZeroVector(vec))
			assert.Equal(t, 1, stats.DroppedHands)
			assert.True(t, stats.Empty())
			assert.False(t, Handedness{Label: tt.label}.Known())
		})
	}
}

func TestEncode_LeftWithUnlabeledKeepsRightEmpty(t *testing.T) {
	vec, stats := Encoder{}.EncodeWithStats(Detections{
		Hands: [MaxHands]*HandDetection{
			uniformHand("", 0.9, 0.9, 0.9),
			uniformHand("left", 0.2, 0.2, 0.2),
		},
	})

	assert.Equal(t, 0.2, vec[SectionLeftHand.Offset()])
	assertZero(t, vec, SectionRightHand)
	assert.Equal(t, 1, stats.DroppedHands)
	assert.True(t, stats.LeftPresent)
	assert.False(t, stats.RightPresent)
}

func TestEncode_DuplicateSideLastWins(t *testing.T) {
	vec, stats := Encoder{}.EncodeWithStats(Detections{
		Hands: [MaxHands]*HandDetection{
			uniformHand("left", 0.2, 0.2, 0.2),
			uniformHand("Left", 0.7, 0.7, 0.7),
		},
	})

	for i := SectionLeftHand.Offset(); i < SectionLeftHand.Offset()+SectionLeftHand.Len(); i++ {
		assert.Equal(t, 0.7, vec[i])
	}
	assertZero(t, vec, SectionRightHand)
	assert.Equal(t, 1, stats.DuplicateSides)
}

func TestEncode_BothHands(t *testing.T) {
	left := indexedHand("Left", 0.1)
	right := indexedHand("Right", 0.5)
	vec := Encode(Detections{Hands: [MaxHands]*HandDetection{right, left}})

	f := Decode(vec)
	assert.Equal(t, left.Points, f.LeftHand)
	assert.Equal(t, right.Points, f.RightHand)
}

func TestEncode_SecondSlotOnly(t *testing.T) {
	vec := Encode(Detections{Hands: [MaxHands]*HandDetection{nil, uniformHand("right", 0.6, 0.6, 0)}})
	assert.Equal(t, 0.6, vec[SectionRightHand.Offset()])
	assertZero(t, vec, SectionLeftHand)
}

func TestEncoder_FallbackAssumeLeft(t *testing.T) {
	enc := Encoder{Fallback: FallbackAssumeLeft}

	t.Run("single unlabeled hand goes left", func(t *testing.T) {
		vec, stats := enc.EncodeWithStats(Detections{Hands: [MaxHands]*HandDetection{uniformHand("", 0.3, 0.3, 0)}})
		assert.Equal(t, 0.3, vec[SectionLeftHand.Offset()])
		assert.Equal(t, 0, stats.DroppedHands)
	})

	t.Run("two hands keep drop policy for unlabeled", func(t *testing.T) {
		vec, stats := enc.EncodeWithStats(Detections{Hands: [MaxHands]*HandDetection{
			uniformHand("", 0.3, 0.3, 0),
			uniformHand("right", 0.6, 0.6, 0),
		}})
		assertZero(t, vec, SectionLeftHand)
		assert.Equal(t, 0.6, vec[SectionRightHand.Offset()])
		assert.Equal(t, 1, stats.DroppedHands)
	})
}

func TestParseHandednessFallback(t *testing.T) {
	assert.Equal(t, FallbackAssumeLeft, ParseHandednessFallback("left"))
	assert.Equal(t, FallbackAssumeLeft, ParseHandednessFallback("ASSUME_LEFT"))
	assert.Equal(t, FallbackDrop, ParseHandednessFallback("drop"))
	assert.Equal(t, FallbackDrop, ParseHandednessFallback(""))
	assert.Equal(t, "drop", FallbackDrop.String())
	assert.Equal(t, "left", FallbackAssumeLeft.String())
}

func TestEncode_DoesNotShareState(t *testing.T) {
	a := Encode(Detections{Pose: uniformPose(0.1, 0.1, 0.1)})
	b := Encode(Detections{})
	a[0] = math.Pi
	assert.Equal(t, 0.0, b[0])
}
