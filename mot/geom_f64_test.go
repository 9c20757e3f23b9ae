package mot

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestRectangleCenter(t *testing.T) {
	rect := NewRect(378.0, 147.0, 173.0, 243.0)
	center := rect.Center()
	if math.Abs(center.X-464.5) > eps || math.Abs(center.Y-268.5) > eps {
		t.Errorf("Wrong center: %+v, expected: {X:464.5 Y:268.5}", center)
	}
	corners := NewRectFromCorners(10, 20, 50, 100)
	if corners != NewRect(10, 20, 40, 80) {
		t.Errorf("Wrong rectangle from corners: %+v", corners)
	}
}

func TestRectangleValid(t *testing.T) {
	cases := []struct {
		rect  Rectangle
		valid bool
	}{
		{NewRect(0, 0, 10, 10), true},
		{NewRect(-5, -5, 10, 10), true},
		{NewRect(0, 0, 0, 10), false},
		{NewRect(0, 0, 10, -1), false},
		{NewRect(math.NaN(), 0, 10, 10), false},
		{NewRect(0, 0, math.Inf(1), 10), false},
	}
	for _, c := range cases {
		if c.rect.Valid() != c.valid {
			t.Errorf("Rectangle %+v: expected valid=%t", c.rect, c.valid)
		}
	}
}
