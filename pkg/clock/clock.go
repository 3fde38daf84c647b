// Package clock provides time abstractions for production and testing
package clock

import "time"

// Clock is the time source used by the ledger and the HTTP layer.
// clockwork.Clock satisfies it, so clockwork.NewFakeClock works in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock provides production time implementation using the standard library
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// DayKey returns the UTC calendar date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
