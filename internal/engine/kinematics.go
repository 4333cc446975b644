package engine

import "math"

// TwoPi is a full turn in radians
const TwoPi = 2 * math.Pi

// Point is a coordinate on the board
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position of an item in space. Direction is in radians, speed is signed
// along the direction.
type Position struct {
	Pos       Point   `json:"pos"`
	Direction float64 `json:"direction"`
	Speed     float64 `json:"speed"`
}

// Stats bound what an item can do in one evaluation.
// Detection is the radar radius, zero when the item has no radar.
type Stats struct {
	Acceleration float64 `json:"acceleration"`
	Turn         float64 `json:"turn"`
	Size         float64 `json:"size"`
	Stealth      bool    `json:"stealth,omitempty"`
	Detection    float64 `json:"detection,omitempty"`
}

// Body is anything that can collide
type Body struct {
	Position Position
	Stats    Stats
}

// Advance moves a position one kinematic step along its heading
func Advance(p Position) Position {
	p.Pos.X += math.Cos(p.Direction) * p.Speed
	p.Pos.Y += math.Sin(p.Direction) * p.Speed
	return p
}

// NextPosition returns the position after n kinematic steps
func NextPosition(p Position, n int) Position {
	for i := 0; i < n; i++ {
		p = Advance(p)
	}
	return p
}

// SquaredDistance is cheaper than Distance; use it for comparisons
func SquaredDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Distance returns the distance between two points
func Distance(a, b Point) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}

// Collides checks if two bodies overlap
func Collides(a, b Body) bool {
	radSum := a.Stats.Size + b.Stats.Size
	return SquaredDistance(a.Position.Pos, b.Position.Pos) < radSum*radSum
}

// NormalizeDirection wraps a heading into [0, 2π)
func NormalizeDirection(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		a = 0
	}
	return a
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= TwoPi
	}
	for a < -math.Pi {
		a += TwoPi
	}
	return a
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
