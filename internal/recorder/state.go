package recorder

import "fmt"

// State is the controller lifecycle. Exactly one holds at a time.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// event drives transitions.
type event int

const (
	evStarted event = iota
	evStopped
	evSettled
)

// next returns the state after ev, or false when ev is not valid from s.
func (s State) next(ev event) (State, bool) {
	switch s {
	case Idle:
		if ev == evStarted {
			return Recording, true
		}
	case Recording:
		if ev == evStopped {
			return Processing, true
		}
	case Processing:
		if ev == evSettled {
			return Idle, true
		}
	}
	return s, false
}
