package detector

import (
	"slices"

	"sign-landmark-service/internal/landmark"
)

// RawPoint is one keypoint as emitted by the vision model. Z is optional.
type RawPoint struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// RawCategory is one entry of a handedness classification.
type RawCategory struct {
	CategoryName string  `json:"categoryName"`
	DisplayName  string  `json:"displayName,omitempty"`
	Score        float64 `json:"score"`
}

// RawResult is the untyped detector output for one frame: any number of
// poses and hands, with handedness given per hand as a list of categories.
type RawResult struct {
	PoseLandmarks [][]RawPoint    `json:"poseLandmarks"`
	HandLandmarks [][]RawPoint    `json:"handLandmarks"`
	Handedness    [][]RawCategory `json:"handedness"`
}

// Detections converts the raw result to structured detections.
//
// Only the first pose is used. A pose or hand with too few points is
// treated as not detected. At most two hands are kept: hands labeled left
// or right take the slots first, then unlabeled ones, and the kept hands
// stay in input order. A hand without a classification gets an empty
// label, which the encoder drops.
func (r RawResult) Detections() landmark.Detections {
	var d landmark.Detections

	if len(r.PoseLandmarks) > 0 && len(r.PoseLandmarks[0]) >= landmark.PoseLandmarks {
		var pose landmark.PoseFrame
		for i := range pose {
			pose[i] = r.PoseLandmarks[0][i].keypoint()
		}
		d.Pose = &pose
	}

	var labeled, unlabeled []int
	for i, points := range r.HandLandmarks {
		if len(points) < landmark.HandLandmarks {
			continue
		}
		if r.handedness(i).Known() {
			labeled = append(labeled, i)
		} else {
			unlabeled = append(unlabeled, i)
		}
	}

	kept := append(labeled, unlabeled...)
	if len(kept) > landmark.MaxHands {
		kept = kept[:landmark.MaxHands]
	}
	slices.Sort(kept)

	for slot, i := range kept {
		h := &landmark.HandDetection{Handedness: r.handedness(i)}
		for j := range h.Points {
			h.Points[j] = r.HandLandmarks[i][j].keypoint()
		}
		d.Hands[slot] = h
	}

	return d
}

// handedness returns the top category for hand i, or an empty label.
func (r RawResult) handedness(i int) landmark.Handedness {
	if i < len(r.Handedness) && len(r.Handedness[i]) > 0 {
		c := r.Handedness[i][0]
		return landmark.Handedness{Label: c.CategoryName, Score: c.Score}
	}
	return landmark.Handedness{}
}

func (p RawPoint) keypoint() landmark.Keypoint {
	kp := landmark.Keypoint{X: p.X, Y: p.Y}
	if p.Z != nil {
		kp.Z = *p.Z
	}
	return kp
}
