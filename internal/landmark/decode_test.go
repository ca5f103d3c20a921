package landmark

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		det  Detections
	}{
		{"empty", Detections{}},
		{"pose only", Detections{Pose: indexedPose()}},
		{"left only", Detections{Hands: [MaxHands]*HandDetection{indexedHand("left", 0.2)}}},
		{"all", Detections{
			Pose:  indexedPose(),
			Hands: [MaxHands]*HandDetection{indexedHand("LEFT", 0.1), indexedHand("right", 0.4)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Decode(Encode(tt.det))

			var wantPose PoseFrame
			if tt.det.Pose != nil {
				wantPose = *tt.det.Pose
			}
			var wantLeft, wantRight HandFrame
			for _, h := range tt.det.Hands {
				if h == nil {
					continue
				}
				switch h.Handedness.Label {
				case "left", "LEFT":
					wantLeft = h.Points
				case "right":
					wantRight = h.Points
				}
			}

			for i := range wantPose {
				assert.InDelta(t, wantPose[i].X, f.Pose[i].X, 1e-12)
				assert.InDelta(t, wantPose[i].Y, f.Pose[i].Y, 1e-12)
				assert.InDelta(t, wantPose[i].Z, f.Pose[i].Z, 1e-12)
			}
			assert.Equal(t, wantLeft, f.LeftHand)
			assert.Equal(t, wantRight, f.RightHand)
		})
	}
}

func TestDecode_ShortVector(t *testing.T) {
	vec := Encode(Detections{
		Pose:  uniformPose(0.5, 0.5, 0.5),
		Hands: [MaxHands]*HandDetection{uniformHand("left", 0.2, 0.2, 0.2)},
	})

	t.Run("truncated left hand", func(t *testing.T) {
		f := Decode(vec[:150])
		assert.True(t, HasData(f.Pose[:]))
		assert.False(t, HasData(f.LeftHand[:]))
		assert.False(t, HasData(f.RightHand[:]))
	})

	t.Run("nil", func(t *testing.T) {
		f := Decode(nil)
		assert.False(t, HasData(f.Pose[:]))
	})

	t.Run("longer than layout", func(t *testing.T) {
		long := append(append([]float64(nil), vec...), 9, 9, 9)
		f := Decode(long)
		assert.Equal(t, 0.2, f.LeftHand[0].X)
	})
}

func TestDecode_PreservesNonFinite(t *testing.T) {
	vec := ZeroVector()
	vec[0] = math.NaN()
	vec[1] = math.Inf(1)

	f := Decode(vec)
	assert.True(t, math.IsNaN(f.Pose[0].X))
	assert.True(t, math.IsInf(f.Pose[0].Y, 1))
	assert.True(t, math.IsNaN(vec[0]), "decode must not modify the source vector")

	assert.False(t, HasData(f.Pose[:]), "non-finite values are drawn as zero")
	ov := BuildOverlay(f, 100, 100)
	assert.Empty(t, ov.Points)
}

func TestHasData(t *testing.T) {
	var hand HandFrame
	assert.False(t, HasData(hand[:]))

	hand[20].Z = -0.01
	assert.True(t, HasData(hand[:]))

	assert.False(t, HasData(nil))
}

func TestFrame_Presence(t *testing.T) {
	f := Decode(Encode(Detections{Hands: [MaxHands]*HandDetection{uniformHand("right", 0.5, 0.5, 0)}}))
	assert.Equal(t, map[string]bool{"pose": false, "left_hand": false, "right_hand": true}, f.Presence())
}

func TestDecodeSequence(t *testing.T) {
	seq := [][]float64{Encode(Detections{Pose: uniformPose(0.1, 0.1, 0)}), ZeroVector()}
	frames := DecodeSequence(seq)
	require.Len(t, frames, 2)
	assert.Equal(t, 0.1, frames[0].Pose[0].X)
	assert.False(t, HasData(frames[1].Pose[:]))
}

func TestBuildOverlay(t *testing.T) {
	f := Decode(Encode(Detections{
		Pose:  uniformPose(0.5, 0.25, 0),
		Hands: [MaxHands]*HandDetection{uniformHand("right", 0.1, 0.1, 0)},
	}))

	ov := BuildOverlay(f, 200, 100)

	assert.Len(t, ov.Points, PoseLandmarks+HandLandmarks)
	assert.Len(t, ov.Lines, len(PoseConnections)+len(HandConnections))
	assert.Equal(t, 100, ov.Points[0].X)
	assert.Equal(t, 25, ov.Points[0].Y)
	for _, p := range ov.Points {
		assert.NotEqual(t, "left_hand", p.Name)
	}
}

func TestBuildOverlay_SkipsSentinelEdges(t *testing.T) {
	hand := uniformHand("left", 0.5, 0.5, 0)
	hand.Points[Wrist] = Keypoint{}
	f := Decode(Encode(Detections{Hands: [MaxHands]*HandDetection{hand}}))

	ov := BuildOverlay(f, 10, 10)

	assert.Len(t, ov.Points, HandLandmarks-1)
	wristEdges := 0
	for _, c := range HandConnections {
		if c.From == Wrist || c.To == Wrist {
			wristEdges++
		}
	}
	assert.Len(t, ov.Lines, len(HandConnections)-wristEdges)
}

func TestOverlay_PNG(t *testing.T) {
	f := Decode(Encode(Detections{Pose: uniformPose(0.5, 0.5, 0)}))
	ov := BuildOverlay(f, 64, 48)

	var buf bytes.Buffer
	require.NoError(t, ov.PNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())

	r, g, b, _ := img.At(32, 24).RGBA()
	assert.NotEqual(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
}

func TestConnections_InRange(t *testing.T) {
	for _, c := range PoseConnections {
		assert.Less(t, c.From, PoseLandmarks)
		assert.Less(t, c.To, PoseLandmarks)
	}
	for _, c := range HandConnections {
		assert.Less(t, c.From, HandLandmarks)
		assert.Less(t, c.To, HandLandmarks)
	}
	assert.Len(t, HandConnections, 21)
}

func TestPlayer_Loops(t *testing.T) {
	seq := [][]float64{
		Encode(Detections{Pose: uniformPose(0.1, 0, 0)}),
		Encode(Detections{Pose: uniformPose(0.2, 0, 0)}),
		Encode(Detections{Pose: uniformPose(0.3, 0, 0)}),
	}
	p, err := NewPlayer(seq, 30)
	require.NoError(t, err)

	var got []float64
	var idx []int
	for i := 0; i < 7; i++ {
		n, f := p.Next()
		idx = append(idx, n)
		got = append(got, f.Pose[0].X)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, idx)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.1, 0.2, 0.3, 0.1}, got)

	p.Reset()
	n, _ := p.Next()
	assert.Equal(t, 0, n)
}

func TestPlayer_CopiesSequence(t *testing.T) {
	seq := [][]float64{Encode(Detections{Pose: uniformPose(0.1, 0, 0)})}
	p, err := NewPlayer(seq, 10)
	require.NoError(t, err)

	seq[0][0] = 0.9
	_, f := p.Next()
	assert.Equal(t, 0.1, f.Pose[0].X)
}

func TestPlayer_InvalidInput(t *testing.T) {
	_, err := NewPlayer(nil, 30)
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = NewPlayer([][]float64{ZeroVector()}, 0)
	assert.ErrorIs(t, err, ErrInvalidFPS)
}

func TestPlayer_Play(t *testing.T) {
	seq := [][]float64{ZeroVector(), ZeroVector()}
	p, err := NewPlayer(seq, 200)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, p.Interval())

	stop := errors.New("stop")
	var seen []int
	err = p.Play(context.Background(), func(i int, _ Frame) error {
		seen = append(seen, i)
		if len(seen) == 5 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{0, 1, 0, 1, 0}, seen)
}

func TestPlayer_PlayCancelled(t *testing.T) {
	p, err := NewPlayer([][]float64{ZeroVector()}, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = p.Play(ctx, func(int, Frame) error {
		calls++
		cancel()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
