// Package system is the wall-clock source behind persistence timestamps.
// Tests substitute a fixed clock so last_crawled_at and child-row creation
// times are assertable.
package system

import "time"

// Clock reads the system time, always in UTC so stored timestamps compare
// across hosts.
type Clock struct{}

// New returns a system Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
