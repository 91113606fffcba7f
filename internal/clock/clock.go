package clock

import "time"

// Clock abstracts wall-clock reads so that time-bucket logic can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

// Now returns the current UTC instant.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed struct {
	Instant time.Time
}

// Now returns the configured instant.
func (f Fixed) Now() time.Time {
	return f.Instant
}

var (
	_ Clock = System{}
	_ Clock = Fixed{}
)
