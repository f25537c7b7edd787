package queue

import (
	"cmp"
	"slices"
)

// Compare orders visits for display: higher priority first, then longer
// wait first. Visits equal on both keys compare as equal.
func Compare(a, b Visit) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(b.WaitMinutes, a.WaitMinutes)
}

// Sort orders visits in place with Compare. The sort is stable so visits
// that compare equal keep their relative order across calls.
func Sort(visits []Visit) {
	slices.SortStableFunc(visits, Compare)
}
