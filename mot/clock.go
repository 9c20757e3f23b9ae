package mot

import "time"

// Clock provides current wall-clock time for event timestamps and dwell measurement
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard time package
type SystemClock struct{}

// Now returns the current local time
func (SystemClock) Now() time.Time {
	return time.Now()
}
