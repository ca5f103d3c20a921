// Package models defines the data structures for landmark events.
package models

// Event types published to Kafka.
const (
	EventTypeContribution = "sign.landmarks.contribution"
	EventTypePrediction   = "sign.landmarks.prediction"
)

// Contribution sources.
const (
	SourceLandmarks = "landmarks"
	SourceVideo     = "video"
)

// SectionCoverage counts the frames in which each section has data.
type SectionCoverage struct {
	Pose      int `json:"pose"`
	LeftHand  int `json:"leftHand"`
	RightHand int `json:"rightHand"`
}

// ContributionEvent is published after the backend stored a contribution.
type ContributionEvent struct {
	EventType      string          `json:"eventType"`
	ContributionID string          `json:"contributionId"`
	Principal      string          `json:"principal,omitempty"`
	Sign           string          `json:"sign"`
	Source         string          `json:"source"`
	Frames         int             `json:"frames"`
	EmptyFrames    int             `json:"emptyFrames"`
	Coverage       SectionCoverage `json:"coverage"`
	BackendMessage string          `json:"backendMessage,omitempty"`
	Timestamp      int64           `json:"timestamp"`
}

// PredictionEvent is published after the backend classified a sequence.
type PredictionEvent struct {
	EventType  string          `json:"eventType"`
	RequestID  string          `json:"requestId"`
	Principal  string          `json:"principal,omitempty"`
	Prediction string          `json:"prediction"`
	Confidence float64         `json:"confidence"`
	Frames     int             `json:"frames"`
	Coverage   SectionCoverage `json:"coverage"`
	Timestamp  int64           `json:"timestamp"`
}
