package landmark

// Frame is the structured form of one encoded vector.
type Frame struct {
	Pose      PoseFrame `json:"pose"`
	LeftHand  HandFrame `json:"leftHand"`
	RightHand HandFrame `json:"rightHand"`
}

// Section returns the keypoints of the given section.
func (f *Frame) Section(s Section) []Keypoint {
	switch s {
	case SectionPose:
		return f.Pose[:]
	case SectionLeftHand:
		return f.LeftHand[:]
	case SectionRightHand:
		return f.RightHand[:]
	default:
		return nil
	}
}

// Decode slices vec back into pose, left hand and right hand keypoints.
// A section that does not fit inside vec is left zero. Values are copied
// as-is; non-finite numbers are only neutralized when drawing.
func Decode(vec []float64) Frame {
	var f Frame
	readKeypoints(vec, SectionPose, f.Pose[:])
	readKeypoints(vec, SectionLeftHand, f.LeftHand[:])
	readKeypoints(vec, SectionRightHand, f.RightHand[:])
	return f
}

// DecodeSequence decodes every vector of seq.
func DecodeSequence(seq [][]float64) []Frame {
	frames := make([]Frame, len(seq))
	for i, vec := range seq {
		frames[i] = Decode(vec)
	}
	return frames
}

func readKeypoints(vec []float64, s Section, dst []Keypoint) {
	off := s.Offset()
	if off < 0 || off+s.Len() > len(vec) {
		return
	}
	for i := range dst {
		base := off + i*Components
		dst[i] = Keypoint{X: vec[base], Y: vec[base+1], Z: vec[base+2]}
	}
}

// HasData reports whether any keypoint of a section carries a nonzero
// coordinate. Non-finite values count as zero.
func HasData(points []Keypoint) bool {
	for _, p := range points {
		if !p.Sanitized().IsZero() {
			return true
		}
	}
	return false
}

// Presence reports HasData for each section of f, keyed by section name.
func (f *Frame) Presence() map[string]bool {
	out := make(map[string]bool, len(Sections))
	for _, s := range Sections {
		out[s.String()] = HasData(f.Section(s))
	}
	return out
}
