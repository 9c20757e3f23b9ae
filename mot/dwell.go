package mot

import (
	"fmt"
	"time"
)

const (
	// DefaultFrameRateCorrection scales measured seconds to frame-equivalent time
	DefaultFrameRateCorrection = 1.35
	// DefaultAssumedFrameRate converts frame-equivalent time back to seconds
	DefaultAssumedFrameRate = 30.0
)

// DwellPairing selects which key pairs an entry with an exit
type DwellPairing uint8

const (
	// PairByPosition pairs N-th entry with N-th exit
	PairByPosition DwellPairing = iota
	// PairByTrack pairs entry and exit of the same track
	PairByTrack
)

// String returns textual representation of pairing policy
func (pairing DwellPairing) String() string {
	switch pairing {
	case PairByPosition:
		return "position"
	case PairByTrack:
		return "track"
	default:
		return fmt.Sprintf("DwellPairing(%d)", pairing)
	}
}

// DwellMatcher pairs entry events with later exit events and measures time between them
type DwellMatcher struct {
	pairing             DwellPairing
	frameRateCorrection float64
	assumedFrameRate    float64
	clock               Clock
	// Pending entries: pairing key to entry timestamp
	pending map[int]time.Time
}

// NewDwellMatcherDefault creates DwellMatcher with position pairing and default scale factors
func NewDwellMatcherDefault(clock Clock) *DwellMatcher {
	return NewDwellMatcher(PairByPosition, DefaultFrameRateCorrection, DefaultAssumedFrameRate, clock)
}

// NewDwellMatcher creates new instance of DwellMatcher.
// Non-positive factors fall back to defaults, nil clock falls back to SystemClock
func NewDwellMatcher(pairing DwellPairing, frameRateCorrection, assumedFrameRate float64, clock Clock) *DwellMatcher {
	if frameRateCorrection <= 0 {
		frameRateCorrection = DefaultFrameRateCorrection
	}
	if assumedFrameRate <= 0 {
		assumedFrameRate = DefaultAssumedFrameRate
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &DwellMatcher{
		pairing:             pairing,
		frameRateCorrection: frameRateCorrection,
		assumedFrameRate:    assumedFrameRate,
		clock:               clock,
		pending:             make(map[int]time.Time),
	}
}

// Pairing returns pairing policy
func (matcher *DwellMatcher) Pairing() DwellPairing {
	return matcher.pairing
}

// RecordEntry stores current time for given key. Repeated entry with the same key overwrites the previous one
func (matcher *DwellMatcher) RecordEntry(key int) {
	matcher.pending[key] = matcher.clock.Now()
}

// ResolveExit removes entry with given key and returns time elapsed since it.
// Returns zero and false when there is no such entry.
func (matcher *DwellMatcher) ResolveExit(key int) (time.Duration, bool) {
	entered, ok := matcher.pending[key]
	if !ok {
		return 0, false
	}
	delete(matcher.pending, key)
	return matcher.clock.Now().Sub(entered), true
}

// Pending returns number of entries waiting for their exit
func (matcher *DwellMatcher) Pending() int {
	return len(matcher.pending)
}

// Measure builds dwell with derived metrics
func (matcher *DwellMatcher) Measure(duration time.Duration, matched bool) Dwell {
	frameEquivalent := duration.Seconds() * matcher.frameRateCorrection
	return Dwell{
		Duration:        duration,
		Matched:         matched,
		FrameEquivalent: frameEquivalent,
		Actual:          frameEquivalent / matcher.assumedFrameRate,
	}
}

// Enrich records entries and attaches dwell to exits
func (matcher *DwellMatcher) Enrich(ev CrossingEvent) CrossingEvent {
	key := ev.Position
	if matcher.pairing == PairByTrack {
		key = ev.ObjectID
	}
	switch ev.Direction {
	case DirectionIn:
		matcher.RecordEntry(key)
	case DirectionOut:
		duration, matched := matcher.ResolveExit(key)
		dwell := matcher.Measure(duration, matched)
		ev.Dwell = &dwell
	}
	return ev
}
