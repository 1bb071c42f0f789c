// Package system implements the pipeline clock against the wall clock.
package system

import "time"

// Clock reads the wall clock. Times are UTC so discovery timestamps
// and snapshot names stay stable across machines.
type Clock struct{}

func New() *Clock {
	return &Clock{}
}

func (Clock) Now() time.Time {
	return time.Now().UTC()
}
