package state

// transitions lists the moves away from idle. Returning to idle is always allowed.
var transitions = map[State][]State{
	StateIdle: {StateAwaitingProof},
	// a second /deposit replaces the draft
	StateAwaitingProof: {StateAwaitingProof},
}

// IsTransitionAllowed reports whether a conversation may move from one state to another.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
