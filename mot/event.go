package mot

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a crossing event
type Direction uint8

const (
	// DirectionNone means no event
	DirectionNone Direction = iota
	// DirectionIn is an entry
	DirectionIn
	// DirectionOut is an exit
	DirectionOut
)

// String returns textual representation of direction as it is persisted
func (direction Direction) String() string {
	switch direction {
	case DirectionIn:
		return "In"
	case DirectionOut:
		return "Out"
	default:
		return ""
	}
}

// Dwell is elapsed time between an entry and its paired exit
type Dwell struct {
	// Wall-clock gap. Zero when no entry has been found
	Duration time.Duration
	// Whether paired entry has been found
	Matched bool
	// Seconds scaled by frame rate correction factor
	FrameEquivalent float64
	// FrameEquivalent divided by assumed frame rate
	Actual float64
}

// Seconds returns dwell duration in seconds
func (dwell Dwell) Seconds() float64 {
	return dwell.Duration.Seconds()
}

// String returns dwell duration in Go duration notation
func (dwell Dwell) String() string {
	return dwell.Duration.String()
}

// CrossingEvent is an immutable record of a single counted crossing
type CrossingEvent struct {
	ID        uuid.UUID
	ObjectID  int
	Direction Direction
	// People currently inside (entries minus exits) right after this event
	Crowd int
	// Sequential entry or exit counter value of this event
	Position int
	// Entry counter value of the same object if any, otherwise its exit counter value
	EntryExit int
	// Present for exits only
	Dwell *Dwell
	Time  time.Time
	// Zone (store area) label
	Zone string
	// Band name or "zone" for inner zone entries
	Band string
}

// Date returns calendar date of the event
func (ev CrossingEvent) Date() string {
	return ev.Time.Format("2006-01-02")
}

// TimeOfDay returns time of day of the event
func (ev CrossingEvent) TimeOfDay() string {
	return ev.Time.Format("15:04:05")
}
