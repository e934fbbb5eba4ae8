// Package clock abstracts the wall clock behind delegation expiry and session idleness.
package clock

import "time"

// Clock provides the current time; tests substitute a manual clock
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

// New returns the system clock
func New() System {
	return System{}
}

// Now returns the current time in UTC with the monotonic reading stripped,
// so a value compares the same before and after it has been persisted
func (System) Now() time.Time {
	return time.Now().UTC().Round(0)
}
