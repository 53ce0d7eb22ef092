package workflow

// State represents a lifecycle state
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// StateSet is the closed set of states a lifecycle may use
type StateSet map[State]bool

// NewStateSet creates a state set from the given states
func NewStateSet(states ...State) StateSet {
	set := make(StateSet, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

// Contains returns true if the state belongs to the set
func (s StateSet) Contains(state State) bool {
	return s[state]
}
