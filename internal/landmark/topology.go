package landmark

// Connection is an edge between two keypoint indices of the same section.
type Connection struct {
	From, To int
}

// PoseConnections is the 33-point body skeleton (MediaPipe pose topology).
var PoseConnections = []Connection{
	// face
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8}, {9, 10},
	// torso and arms
	{11, 12}, {11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	{11, 23}, {12, 24}, {23, 24},
	// legs
	{23, 25}, {24, 26}, {25, 27}, {26, 28}, {27, 29}, {28, 30},
	{29, 31}, {30, 32}, {27, 31}, {28, 32},
}

// HandConnections is the 21-point hand skeleton.
var HandConnections = []Connection{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// ConnectionsFor returns the edge table of a section.
func ConnectionsFor(s Section) []Connection {
	if s == SectionPose {
		return PoseConnections
	}
	return HandConnections
}
