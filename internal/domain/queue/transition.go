package queue

// transitions maps a status to the statuses reachable from it. Terminal
// statuses have no entry.
var transitions = map[Status][]Status{
	StatusWaiting:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a visit in from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s. The result must not be
// modified.
func NextStatuses(s Status) []Status {
	return transitions[s]
}
