package engine

import "math"

// DefaultAimThreshold is the bearing error under which Aim fires
const DefaultAimThreshold = 0.1

// Angle returns the bearing from source to target in [0, 2π)
func Angle(source, target Point) float64 {
	a := math.Atan2(target.Y-source.Y, target.X-source.X)
	if a < 0 {
		a += TwoPi
	}
	return a
}

// bearingDelta projects the target delay steps ahead and returns the
// counter-clockwise angle from the source heading to it, in [0, 2π)
func bearingDelta(source, target Position, delay int) float64 {
	if delay <= 0 {
		delay = 1
	}
	projected := NextPosition(target, delay)
	agl := Angle(source.Pos, projected.Pos)
	return math.Mod(agl-source.Direction+TwoPi, TwoPi)
}

// TurnToTarget turns the source toward where the target will be after
// delay steps. The turn is clamped by the interpreter so only its sign
// matters: positive when the target is on the left.
func TurnToTarget(source, target Position, delay int) Instruction {
	delta := bearingDelta(source, target, delay)
	return Turn(-delta + math.Pi)
}

// AimOptions tunes Aim. Zero values select delay 1, threshold 0.1 and
// weapon 0.
type AimOptions struct {
	Delay     int
	Threshold float64
	Weapon    int
}

// Aim turns toward the target and fires once the bearing error is under
// the threshold
func Aim(source, target Position, opts AimOptions) Instruction {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultAimThreshold
	}
	delta := bearingDelta(source, target, opts.Delay)
	if delta < threshold {
		return Fire(opts.Weapon, nil)
	}
	return Turn(-delta + math.Pi)
}

// pointTarget is a motionless position at p
func pointTarget(p Point) Position {
	return Position{Pos: p}
}
