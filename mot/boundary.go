package mot

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultSingleHalfWidth is default half width (pixels) of the mid-height band
	DefaultSingleHalfWidth = 30
	// DefaultDualHalfWidth is default half width (pixels) of the quarter-height bands
	DefaultDualHalfWidth = 10
)

// Band is a horizontal counting band: a pixel-row range centered at a fraction of frame height.
// OnUp and OnDown define which event a track produces when it is inside the band and moves
// upward (towards smaller y) or downward. DirectionNone disables counting for that motion.
type Band struct {
	Name      string
	Fraction  float64
	HalfWidth int
	OnUp      Direction
	OnDown    Direction
}

// Rows returns half-open pixel-row range [top, bottom) of the band for given frame height
func (band Band) Rows(frameHeight int) (int, int) {
	center := int(math.Floor(float64(frameHeight) * band.Fraction))
	return center - band.HalfWidth, center + band.HalfWidth
}

// Line returns pixel row of band's center line
func (band Band) Line(frameHeight int) int {
	return int(math.Floor(float64(frameHeight) * band.Fraction))
}

// Contains checks if vertical position is inside the band
func (band Band) Contains(y float64, frameHeight int) bool {
	top, bottom := band.Rows(frameHeight)
	return y >= float64(top) && y < float64(bottom)
}

// classify turns sign of vertical motion into event direction
func (band Band) classify(direction float64) Direction {
	switch {
	case direction < 0:
		return band.OnUp
	case direction > 0:
		return band.OnDown
	default:
		return DirectionNone
	}
}

// Zone is a horizontal strip strictly between two fractions of frame height
type Zone struct {
	TopFraction    float64
	BottomFraction float64
}

// Contains checks if vertical position is strictly inside the zone
func (zone Zone) Contains(y float64, frameHeight int) bool {
	top := math.Floor(float64(frameHeight) * zone.TopFraction)
	bottom := math.Floor(float64(frameHeight) * zone.BottomFraction)
	return y > top && y < bottom
}

// Boundary is a counting configuration of a single store area
type Boundary struct {
	// Zone (store area) label stamped on every event
	Label string
	// Counting bands
	Bands []Band
	// When set, tracks observed inside the zone for the first time are counted as entered
	EntryZone *Zone
	// When set, the first event of a track latches all bands (at most one band event per lifetime)
	OncePerTrack bool
	// When set, the first exit of a track latches all bands (at most one exit per lifetime)
	SingleExit bool
}

// SingleLine creates "single-sided entrance" boundary: one band at mid-height.
// Upward motion inside the band is an entry, downward motion is an exit.
func SingleLine(label string, halfWidth int) Boundary {
	if halfWidth <= 0 {
		halfWidth = DefaultSingleHalfWidth
	}
	return Boundary{
		Label: label,
		Bands: []Band{
			{Name: "middle", Fraction: 0.5, HalfWidth: halfWidth, OnUp: DirectionIn, OnDown: DirectionOut},
		},
		OncePerTrack: true,
	}
}

// DualLine creates "double-sided entrance" boundary: bands at quarter and three-quarter height
// with the inner zone between them.
// Policy: appearing inside the inner zone is an entry; leaving it outward through either band is
// an exit (upward motion at the upper band, downward motion at the lower band).
// A track exits at most once, so it can never produce more exits than entries.
func DualLine(label string, halfWidth int) Boundary {
	if halfWidth <= 0 {
		halfWidth = DefaultDualHalfWidth
	}
	return Boundary{
		Label: label,
		Bands: []Band{
			{Name: "upper", Fraction: 0.25, HalfWidth: halfWidth, OnUp: DirectionOut, OnDown: DirectionNone},
			{Name: "lower", Fraction: 0.75, HalfWidth: halfWidth, OnUp: DirectionNone, OnDown: DirectionOut},
		},
		EntryZone:  &Zone{TopFraction: 0.25, BottomFraction: 0.75},
		SingleExit: true,
	}
}

// Validate checks boundary configuration
func (boundary Boundary) Validate() error {
	if len(boundary.Bands) == 0 && boundary.EntryZone == nil {
		return errors.New("boundary must define at least one band or an entry zone")
	}
	for i, band := range boundary.Bands {
		if band.Fraction < 0 || band.Fraction > 1 {
			return errors.Errorf("band %d (%s): fraction must be in [0, 1], got %f", i, band.Name, band.Fraction)
		}
		if band.HalfWidth <= 0 {
			return errors.Errorf("band %d (%s): half width must be positive, got %d", i, band.Name, band.HalfWidth)
		}
	}
	if zone := boundary.EntryZone; zone != nil {
		if zone.TopFraction < 0 || zone.BottomFraction > 1 || zone.TopFraction >= zone.BottomFraction {
			return errors.Errorf("entry zone must satisfy 0 <= top < bottom <= 1, got [%f, %f]", zone.TopFraction, zone.BottomFraction)
		}
	}
	return nil
}
