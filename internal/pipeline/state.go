package pipeline

import "errors"

// State is a step of the pipeline lifecycle.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateInitialized     State = "initialized"
	StateScenesProcessed State = "scenes_processed"
	StateComposed        State = "composed"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("pipeline: invalid state transition")

var validTransitions = map[State][]State{
	StateUninitialized:   {StateInitialized, StateFailed},
	StateInitialized:     {StateScenesProcessed, StateFailed},
	StateScenesProcessed: {StateComposed, StateFailed},
	StateComposed:        {StateDone, StateFailed},
	StateDone:            {},
	StateFailed:          {},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// progress is the overall completion reported once a state is reached.
var progress = map[State]int{
	StateUninitialized:   0,
	StateInitialized:     5,
	StateScenesProcessed: 80,
	StateComposed:        95,
	StateDone:            100,
}
