// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/availmon/internal/monitor"
)

var _ monitor.Clock = Clock{}

// Clock reports the current time in UTC so history timestamps never carry a local offset.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
