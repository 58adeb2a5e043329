package domain

import "time"

// Clock supplies the current time. All week-boundary math flows through
// it so tests can pin wall time instead of racing the real clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
