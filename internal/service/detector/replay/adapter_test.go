package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"sign-landmark-service/internal/landmark"
	"sign-landmark-service/internal/service/camera"
	"sign-landmark-service/internal/service/detector"
)

func points(n int, x float64) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = `{"x":` + strconv.FormatFloat(x, 'f', -1, 64) + `,"y":0.5,"z":0}`
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func recording() string {
	first := `{"poseLandmarks":[` + points(33, 0.5) + `],"handLandmarks":[` + points(21, 0.1) +
		`],"handedness":[[{"categoryName":"Left","score":0.98}]]}`
	second := `{"poseLandmarks":[],"handLandmarks":[` + points(21, 0.2) +
		`],"handedness":[[{"categoryName":"Right","score":0.91}]]}`
	return first + "\n\n" + second + "\n"
}

func TestAdapter_ReplaysInOrderAndLoops(t *testing.T) {
	a := NewFromReader(strings.NewReader(recording()))
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 results, got %d", a.Len())
	}

	d1, _ := a.Detect(context.Background(), camera.Frame{})
	d2, _ := a.Detect(context.Background(), camera.Frame{})
	d3, _ := a.Detect(context.Background(), camera.Frame{})

	f1 := landmark.Decode(landmark.Encode(d1))
	if f1.Pose[0].X != 0.5 || f1.LeftHand[0].X != 0.1 {
		t.Errorf("unexpected first frame: pose=%v left=%v", f1.Pose[0], f1.LeftHand[0])
	}
	if landmark.HasData(f1.RightHand[:]) {
		t.Error("expected no right hand in first frame")
	}

	f2 := landmark.Decode(landmark.Encode(d2))
	if landmark.HasData(f2.Pose[:]) {
		t.Error("expected no pose in second frame")
	}
	if f2.RightHand[0].X != 0.2 {
		t.Errorf("expected right hand x=0.2, got %v", f2.RightHand[0].X)
	}

	if d3.Pose == nil {
		t.Error("expected playback to loop back to the first result")
	}
}

func TestAdapter_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.jsonl")
	if err := os.WriteFile(path, []byte(recording()), 0o600); err != nil {
		t.Fatal(err)
	}

	a := New(path)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if a.Len() != 2 {
		t.Errorf("expected 2 results, got %d", a.Len())
	}
}

func TestAdapter_MissingFile(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	err := a.Initialize(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestAdapter_Empty(t *testing.T) {
	a := NewFromReader(strings.NewReader("\n\n"))
	if err := a.Initialize(context.Background()); !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestAdapter_BadLine(t *testing.T) {
	a := NewFromReader(strings.NewReader("{not json}\n"))
	err := a.Initialize(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected a line-numbered error, got %v", err)
	}
}

func TestAdapter_Lifecycle(t *testing.T) {
	a := NewFromReader(strings.NewReader(recording()))

	if _, err := a.Detect(context.Background(), camera.Frame{}); !errors.Is(err, detector.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}

	a.Initialize(context.Background())
	a.Close()

	if _, err := a.Detect(context.Background(), camera.Frame{}); !errors.Is(err, detector.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
