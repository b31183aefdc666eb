// Package system provides a real clock implementation.
package system

import "time"

// Clock implements pipeline.Clock using the local wall clock. Durable
// log timestamps are recorded in local time.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time.
func (Clock) Now() time.Time {
	return time.Now()
}
