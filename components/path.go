package components

// PathFailReason explains why a path computation produced no path.
type PathFailReason uint8

const (
	PathFailUnreachable PathFailReason = iota
	PathFailIterationLimit
	PathFailKnownUnreachable
	PathFailInvalidStart
)

// String returns the display name for a PathFailReason.
func (r PathFailReason) String() string {
	switch r {
	case PathFailUnreachable:
		return "unreachable"
	case PathFailIterationLimit:
		return "iteration_limit"
	case PathFailKnownUnreachable:
		return "known_unreachable"
	case PathFailInvalidStart:
		return "invalid_start"
	default:
		return "unknown"
	}
}

// PathReady is a result marker attached to the requesting actor when a
// path computation succeeds. Consumed and removed by the executor;
// mutually exclusive with PathFailed.
type PathReady struct {
	Waypoints    []Tile
	Cost         float64
	ComputedTick uint64
}

// PathFailed is the failure counterpart of PathReady.
type PathFailed struct {
	Reason       PathFailReason
	ComputedTick uint64
}
