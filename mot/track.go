package mot

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxHistory is the number of matched centroids kept per track
	DefaultMaxHistory = 150
)

// Track is a persistent identity of a single physical object.
// Spatial fields are maintained by CentroidTracker, counting state is maintained by CrossingCounter.
type Track struct {
	// Identifier: unique among active tracks, never reused
	ID int
	// Current (last matched) centroid
	Position Point
	// Matched centroids, oldest first. Capped at maxHistory
	History []Point
	// Consecutive frames since last successful match
	Disappeared int

	maxHistory int
	// Optional Kalman filter used to predict next centroid
	predictor *kalman_filter.Kalman2D
	predicted Point

	motion motionState
}

// motionState is the counting side of a track: vertical motion summary and latched crossings
type motionState struct {
	// Number of observed vertical positions and their sum: mean is exact with O(1) memory
	observations int
	sumY         float64
	// Bands (by index in Boundary.Bands) which have already produced an event for this track
	counted map[int]struct{}
	// Whether track has already been counted as entered the inner zone
	entered bool
	// Sequential counter values of this track's In and Out events (zero when absent)
	entryPosition int
	exitPosition  int
}

func newTrack(id int, center Point, maxHistory int, kalmanDT float64) *Track {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	track := Track{
		ID:          id,
		Position:    center,
		History:     make([]Point, 0, minInt(maxHistory, 16)),
		Disappeared: 0,
		maxHistory:  maxHistory,
		predicted:   center,
	}
	if kalmanDT > 0 {
		/* Kalman filter props */
		ux := 1.0
		uy := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		track.predictor = kalman_filter.NewKalman2D(kalmanDT, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(center.X, center.Y))
	}
	track.History = append(track.History, center)
	return &track
}

// Predicted returns Kalman-predicted position of the track.
// When prediction is disabled it is the current position.
func (track *Track) Predicted() Point {
	if track.predictor == nil {
		return track.Position
	}
	return track.predicted
}

// Counted returns true if track has produced at least one crossing event
func (track *Track) Counted() bool {
	return len(track.motion.counted) > 0
}

// CountedAt returns true if track has already crossed the band with given index
func (track *Track) CountedAt(band int) bool {
	_, ok := track.motion.counted[band]
	return ok
}

// Entered returns true if track has been counted as entered the inner zone
func (track *Track) Entered() bool {
	return track.motion.entered
}

// distanceTo returns distance between track and input centroid.
// With prediction enabled the smaller of distances to last and predicted positions is used.
func (track *Track) distanceTo(center Point) float64 {
	dist := euclideanDistance(track.Position, center)
	if track.predictor == nil {
		return dist
	}
	return math.Min(dist, euclideanDistance(track.predicted, center))
}

// predict executes Kalman filter's first step
func (track *Track) predict() {
	if track.predictor == nil {
		return
	}
	track.predictor.Predict()
	stateX, stateY := track.predictor.GetState()
	track.predicted.X = stateX
	track.predicted.Y = stateY
}

// match moves track to the new centroid, resets disappearance and extends history
func (track *Track) match(center Point) error {
	if track.predictor != nil {
		err := track.predictor.Update(center.X, center.Y)
		if err != nil {
			return errors.Wrap(err, "Can't update track predictor")
		}
		stateX, stateY := track.predictor.GetState()
		track.predicted.X = stateX
		track.predicted.Y = stateY
	}
	track.Position = center
	track.Disappeared = 0
	track.History = append(track.History, center)
	if len(track.History) > track.maxHistory {
		track.History = track.History[1:]
	}
	return nil
}

func (m *motionState) meanY() float64 {
	if m.observations == 0 {
		return 0
	}
	return m.sumY / float64(m.observations)
}

func (m *motionState) observe(y float64) {
	m.observations++
	m.sumY += y
}

func (m *motionState) latch(band int) {
	if m.counted == nil {
		m.counted = make(map[int]struct{})
	}
	m.counted[band] = struct{}{}
}

func (m *motionState) isCounted(band int) bool {
	_, ok := m.counted[band]
	return ok
}

// crossReference returns the position counter of the track's entry if any, otherwise of its exit
func (m *motionState) crossReference() int {
	if m.entryPosition != 0 {
		return m.entryPosition
	}
	return m.exitPosition
}
