package mot

import (
	"sync"

	"github.com/pkg/errors"
)

// Session is a single counting area: tracker, counter and dwell matcher behind one lock.
// All state lives in the session, so any number of areas may be counted in one process.
type Session struct {
	mu      sync.Mutex
	tracker *CentroidTracker
	counter *CrossingCounter
	dwell   *DwellMatcher
}

// TrackView is a copy of track's public state safe to use outside of the session lock
type TrackView struct {
	ID          int
	Position    Point
	Predicted   Point
	Disappeared int
	Counted     bool
	Entered     bool
}

// Snapshot is a consistent copy of session state
type Snapshot struct {
	Tracks   []TrackView
	Totals   Totals
	Boundary Boundary
	Pending  int
}

// NewSession creates new instance of Session
func NewSession(tracker *CentroidTracker, counter *CrossingCounter, dwell *DwellMatcher) *Session {
	return &Session{
		tracker: tracker,
		counter: counter,
		dwell:   dwell,
	}
}

// NewSessionDefault creates session with default tracker and dwell matcher for given boundary
func NewSessionDefault(boundary Boundary, clock Clock) *Session {
	return NewSession(
		NewCentroidTrackerDefault(),
		NewCrossingCounter(boundary, clock),
		NewDwellMatcherDefault(clock),
	)
}

// ProcessFrame pushes boxes of a single frame through the tracker, the counter and the dwell matcher
func (session *Session) ProcessFrame(frameHeight int, boxes []Rectangle) ([]CrossingEvent, error) {
	if frameHeight <= 0 {
		return nil, errors.Errorf("frame height must be positive, got %d", frameHeight)
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	_, err := session.tracker.Update(boxes)
	if err != nil {
		return nil, errors.Wrap(err, "Can't update tracker")
	}
	events := session.counter.Process(session.tracker.Tracks(), frameHeight)
	for i := range events {
		events[i] = session.dwell.Enrich(events[i])
	}
	return events, nil
}

// Totals returns current entry and exit counters
func (session *Session) Totals() Totals {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.counter.Totals()
}

// Snapshot returns consistent copy of session state
func (session *Session) Snapshot() Snapshot {
	session.mu.Lock()
	defer session.mu.Unlock()
	tracks := session.tracker.Tracks()
	views := make([]TrackView, 0, len(tracks))
	for _, track := range tracks {
		views = append(views, TrackView{
			ID:          track.ID,
			Position:    track.Position,
			Predicted:   track.Predicted(),
			Disappeared: track.Disappeared,
			Counted:     track.Counted(),
			Entered:     track.Entered(),
		})
	}
	return Snapshot{
		Tracks:   views,
		Totals:   session.counter.Totals(),
		Boundary: session.counter.Boundary(),
		Pending:  session.dwell.Pending(),
	}
}
