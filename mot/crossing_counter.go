package mot

import (
	"github.com/google/uuid"
)

// Totals is a pair of running entry and exit counters
type Totals struct {
	In  int
	Out int
}

// Crowd returns number of objects currently inside
func (totals Totals) Crowd() int {
	return totals.In - totals.Out
}

// CrossingCounter turns per-frame track positions into directional crossing events.
// Behaviour is fully defined by Boundary: one band for single-sided entrances,
// two bands plus an inner zone for double-sided ones.
type CrossingCounter struct {
	boundary Boundary
	totals   Totals
	clock    Clock
}

// NewCrossingCounter creates new instance of CrossingCounter.
// Nil clock falls back to SystemClock
func NewCrossingCounter(boundary Boundary, clock Clock) *CrossingCounter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CrossingCounter{
		boundary: boundary,
		clock:    clock,
	}
}

// Boundary returns counting configuration
func (counter *CrossingCounter) Boundary() Boundary {
	return counter.boundary
}

// Totals returns current entry and exit counters
func (counter *CrossingCounter) Totals() Totals {
	return counter.totals
}

// Process evaluates tracks observed in the current frame and returns emitted events.
// Tracks which have not been matched in this frame are skipped: their position is stale.
func (counter *CrossingCounter) Process(tracks []*Track, frameHeight int) []CrossingEvent {
	var events []CrossingEvent
	for _, track := range tracks {
		if track.Disappeared > 0 {
			continue
		}
		y := track.Position.Y
		motion := &track.motion
		if motion.observations > 0 {
			direction := y - motion.meanY()
			events = append(events, counter.crossBands(track, direction, frameHeight)...)
		}
		motion.observe(y)

		zone := counter.boundary.EntryZone
		if zone != nil && !motion.entered && zone.Contains(y, frameHeight) {
			motion.entered = true
			events = append(events, counter.emit(track, DirectionIn, "zone"))
		}
	}
	return events
}

// crossBands tests current position against every band not yet counted for the track
func (counter *CrossingCounter) crossBands(track *Track, direction float64, frameHeight int) []CrossingEvent {
	var events []CrossingEvent
	motion := &track.motion
	y := track.Position.Y
	for i, band := range counter.boundary.Bands {
		if motion.isCounted(i) {
			continue
		}
		if !band.Contains(y, frameHeight) {
			continue
		}
		eventDirection := band.classify(direction)
		if eventDirection == DirectionNone {
			continue
		}
		if counter.boundary.OncePerTrack || (counter.boundary.SingleExit && eventDirection == DirectionOut) {
			for j := range counter.boundary.Bands {
				motion.latch(j)
			}
		} else {
			motion.latch(i)
		}
		events = append(events, counter.emit(track, eventDirection, band.Name))
	}
	return events
}

func (counter *CrossingCounter) emit(track *Track, direction Direction, band string) CrossingEvent {
	position := 0
	switch direction {
	case DirectionIn:
		counter.totals.In++
		position = counter.totals.In
		track.motion.entryPosition = position
	case DirectionOut:
		counter.totals.Out++
		position = counter.totals.Out
		track.motion.exitPosition = position
	}
	return CrossingEvent{
		ID:        uuid.New(),
		ObjectID:  track.ID,
		Direction: direction,
		Crowd:     counter.totals.Crowd(),
		Position:  position,
		EntryExit: track.motion.crossReference(),
		Time:      counter.clock.Now(),
		Zone:      counter.boundary.Label,
		Band:      band,
	}
}
