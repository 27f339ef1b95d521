package components

// ActionKind identifies what an action does. The content layer defines
// the actual kinds; the executor only threads the value through.
type ActionKind uint8

// ActionState is the resumable execution state persisted on the actor.
// Each state is advanced at most one step per tick.
type ActionState uint8

const (
	ActionNeedsTarget ActionState = iota
	ActionNeedsPath
	ActionAwaitingPath
	ActionAdvancing
	ActionCompleted
	ActionFailed
)

// String returns the display name for an ActionState.
func (s ActionState) String() string {
	switch s {
	case ActionNeedsTarget:
		return "needs_target"
	case ActionNeedsPath:
		return "needs_path"
	case ActionAwaitingPath:
		return "awaiting_path"
	case ActionAdvancing:
		return "advancing"
	case ActionCompleted:
		return "completed"
	case ActionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the action.
func (s ActionState) Terminal() bool {
	return s == ActionCompleted || s == ActionFailed
}

// ActionRecord is the single active action for an actor. At most one
// record exists per actor; replacing it cancels the old action.
type ActionRecord struct {
	Kind        ActionKind
	State       ActionState
	Target      Tile
	RetryCount  uint8
	Path        []Tile
	Cursor      int
	StartedTick uint64
}
