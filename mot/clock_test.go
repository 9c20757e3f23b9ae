package mot

import "time"

// manualClock is a Clock which moves only when told to
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)}
}

func (clock *manualClock) Now() time.Time {
	return clock.now
}

func (clock *manualClock) Advance(d time.Duration) {
	clock.now = clock.now.Add(d)
}
