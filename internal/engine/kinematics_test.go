package engine

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestAdvance(t *testing.T) {
	p := Advance(Position{Pos: Point{X: 10, Y: 10}, Direction: math.Pi / 2, Speed: 2})
	if !near(p.Pos.X, 10) || !near(p.Pos.Y, 12) {
		t.Errorf("expected (10,12), got (%f,%f)", p.Pos.X, p.Pos.Y)
	}
	if p.Direction != math.Pi/2 || p.Speed != 2 {
		t.Error("advance must not change direction or speed")
	}
}

func TestNextPosition(t *testing.T) {
	p := NextPosition(Position{Direction: 0, Speed: 1.5}, 4)
	if !near(p.Pos.X, 6) || !near(p.Pos.Y, 0) {
		t.Errorf("expected (6,0), got (%f,%f)", p.Pos.X, p.Pos.Y)
	}
}

func TestDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	if SquaredDistance(a, b) != 25 {
		t.Errorf("expected 25, got %f", SquaredDistance(a, b))
	}
	if Distance(a, b) != 5 {
		t.Errorf("expected 5, got %f", Distance(a, b))
	}
}

func TestCollides(t *testing.T) {
	body := func(x, y, size float64) Body {
		return Body{Position: Position{Pos: Point{X: x, Y: y}}, Stats: Stats{Size: size}}
	}
	tests := []struct {
		a, b Body
		want bool
	}{
		{body(0, 0, 5), body(9, 0, 5), true},
		{body(0, 0, 5), body(10, 0, 5), false}, // touching is not overlapping
		{body(0, 0, 5), body(11, 0, 5), false},
		{body(0, 0, 1), body(0, 0, 1), true},
		{body(-3, -4, 2), body(0, 0, 3), false},
		{body(-3, -4, 2), body(0, 0, 3.5), true},
	}
	for _, tt := range tests {
		if got := Collides(tt.a, tt.b); got != tt.want {
			t.Errorf("Collides(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if Collides(tt.a, tt.b) != Collides(tt.b, tt.a) {
			t.Errorf("Collides not symmetric for %v, %v", tt.a, tt.b)
		}
	}
}

func TestNormalizeDirection(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{TwoPi, 0},
		{5 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		got := NormalizeDirection(tt.in)
		if !near(got, tt.want) {
			t.Errorf("NormalizeDirection(%f) = %f, want %f", tt.in, got, tt.want)
		}
		if got < 0 || got >= TwoPi {
			t.Errorf("NormalizeDirection(%f) = %f out of range", tt.in, got)
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	if !near(NormalizeAngle(3*math.Pi/2), -math.Pi/2) {
		t.Errorf("expected -pi/2, got %f", NormalizeAngle(3*math.Pi/2))
	}
	if !near(NormalizeAngle(-3*math.Pi/2), math.Pi/2) {
		t.Errorf("expected pi/2, got %f", NormalizeAngle(-3*math.Pi/2))
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("clamp out of bounds")
	}
}
