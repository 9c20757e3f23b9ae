package mot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned detection box in pixel space
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect creates rectangle from its top-left corner and size
func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectFromCorners creates rectangle from (left, top, right, bottom) corners
func NewRectFromCorners(left, top, right, bottom float64) Rectangle {
	return Rectangle{
		X:      left,
		Y:      top,
		Width:  right - left,
		Height: bottom - top,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Center returns centroid of the rectangle: ((left+right)/2, (top+bottom)/2)
func (rect Rectangle) Center() Point {
	return Point{
		X: (rect.X + rect.X + rect.Width) / 2.0,
		Y: (rect.Y + rect.Y + rect.Height) / 2.0,
	}
}

// Valid reports whether rectangle has finite coordinates and strictly positive size.
// Invalid rectangles are never turned into centroids.
func (rect Rectangle) Valid() bool {
	for _, v := range [4]float64{rect.X, rect.Y, rect.Width, rect.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return rect.Width > 0 && rect.Height > 0
}

// ToImage converts rectangle to integer image.Rectangle (truncating)
func (rect Rectangle) ToImage() image.Rectangle {
	return image.Rect(int(rect.X), int(rect.Y), int(rect.X+rect.Width), int(rect.Y+rect.Height))
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// ToImage converts point to integer image.Point (truncating)
func (p Point) ToImage() image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}
