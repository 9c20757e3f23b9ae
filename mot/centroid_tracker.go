package mot

import (
	"sort"

	"github.com/pkg/errors"
)

// CentroidTracker is implementation of Multi-object tracker (MOT) which associates
// detections by distance between centroids.
// Tracks get sequential integer identifiers which are never reused.
type CentroidTracker struct {
	// Main storage
	tracks map[int]*Track
	// Next identifier to assign
	nextID int
	// Max number of consecutive frames when object could not be found again. Default is 40
	maxDisappeared int
	// Threshold distance in pixels. Default is 50.0
	maxDistance float64
	// Algorithm to use for matching
	algorithm MatchingAlgorithm
	// Max number of points in track's history
	maxHistory int
	// Time step for Kalman prediction. Zero disables prediction
	kalmanDT float64
}

// TrackerOption configures optional CentroidTracker behaviour
type TrackerOption func(*CentroidTracker)

// WithMatchingAlgorithm sets algorithm for matching centroids to tracks
func WithMatchingAlgorithm(algorithm MatchingAlgorithm) TrackerOption {
	return func(tracker *CentroidTracker) {
		tracker.algorithm = algorithm
	}
}

// WithKalman enables Kalman prediction of track positions with given time step (e.g. 1/fps).
// Distance to a track becomes the smaller of distances to its last and predicted positions.
func WithKalman(dt float64) TrackerOption {
	return func(tracker *CentroidTracker) {
		tracker.kalmanDT = dt
	}
}

// WithMaxHistory sets max number of points kept in track's history
func WithMaxHistory(maxHistory int) TrackerOption {
	return func(tracker *CentroidTracker) {
		if maxHistory > 0 {
			tracker.maxHistory = maxHistory
		}
	}
}

// NewCentroidTrackerDefault creates default instance of CentroidTracker
func NewCentroidTrackerDefault(options ...TrackerOption) *CentroidTracker {
	return NewCentroidTracker(40, 50.0, options...)
}

// NewCentroidTracker creates new instance of CentroidTracker
func NewCentroidTracker(maxDisappeared int, maxDistance float64, options ...TrackerOption) *CentroidTracker {
	tracker := &CentroidTracker{
		tracks:         make(map[int]*Track),
		nextID:         0,
		maxDisappeared: maxDisappeared,
		maxDistance:    maxDistance,
		algorithm:      MatchingAlgorithmGreedy,
		maxHistory:     DefaultMaxHistory,
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

// Update matches current frame's boxes to existing tracks and returns the registry:
// identifier of every active track mapped to its current centroid.
// Boxes with non-positive size are dropped before centroid computation.
func (tracker *CentroidTracker) Update(boxes []Rectangle) (map[int]Point, error) {
	centroids := make([]Point, 0, len(boxes))
	for _, box := range boxes {
		if !box.Valid() {
			continue
		}
		centroids = append(centroids, box.Center())
	}

	tracks := tracker.Tracks()
	for _, track := range tracks {
		track.predict()
	}

	if len(centroids) == 0 {
		for _, track := range tracks {
			tracker.markDisappeared(track)
		}
		return tracker.Registry(), nil
	}

	if len(tracks) == 0 {
		for _, center := range centroids {
			tracker.register(center)
		}
		return tracker.Registry(), nil
	}

	distances := distanceMatrix(tracks, centroids)
	var matches []match
	switch tracker.algorithm {
	case MatchingAlgorithmHungarian:
		matches = hungarianMatching(distances, tracker.maxDistance)
	default:
		matches = greedyMatching(distances, tracker.maxDistance)
	}

	usedRows := make(map[int]struct{}, len(matches))
	usedCols := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		track := tracks[m.row]
		err := track.match(centroids[m.col])
		if err != nil {
			return nil, errors.Wrapf(err, "Can't update track with id %d", track.ID)
		}
		usedRows[m.row] = struct{}{}
		usedCols[m.col] = struct{}{}
	}

	// Existing tracks without association age by one frame
	for row, track := range tracks {
		if _, ok := usedRows[row]; !ok {
			tracker.markDisappeared(track)
		}
	}
	// Inputs without association become new tracks
	for col, center := range centroids {
		if _, ok := usedCols[col]; !ok {
			tracker.register(center)
		}
	}
	return tracker.Registry(), nil
}

// Registry returns identifier of every active track mapped to its current centroid
func (tracker *CentroidTracker) Registry() map[int]Point {
	registry := make(map[int]Point, len(tracker.tracks))
	for id, track := range tracker.tracks {
		registry[id] = track.Position
	}
	return registry
}

// Tracks returns active tracks ordered by identifier
func (tracker *CentroidTracker) Tracks() []*Track {
	tracks := make([]*Track, 0, len(tracker.tracks))
	for _, track := range tracker.tracks {
		tracks = append(tracks, track)
	}
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].ID < tracks[j].ID
	})
	return tracks
}

// Track returns active track by its identifier
func (tracker *CentroidTracker) Track(id int) (*Track, bool) {
	track, ok := tracker.tracks[id]
	return track, ok
}

// Len returns number of active tracks
func (tracker *CentroidTracker) Len() int {
	return len(tracker.tracks)
}

// NextID returns identifier which will be assigned to the next new track
func (tracker *CentroidTracker) NextID() int {
	return tracker.nextID
}

func (tracker *CentroidTracker) register(center Point) *Track {
	track := newTrack(tracker.nextID, center, tracker.maxHistory, tracker.kalmanDT)
	tracker.tracks[track.ID] = track
	tracker.nextID++
	return track
}

// markDisappeared increments no match counter and removes track if it was not found for a long time
func (tracker *CentroidTracker) markDisappeared(track *Track) {
	track.Disappeared++
	if track.Disappeared > tracker.maxDisappeared {
		delete(tracker.tracks, track.ID)
	}
}
