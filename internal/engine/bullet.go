package engine

import (
	"fmt"
	"math"
)

// Bullet is a projectile. Nobody steers it except its Controller, which
// is only present on guided munitions. Guidance names the controller a
// blueprint builds when the shot comes with a target.
type Bullet struct {
	ID         string         `json:"id"`
	Class      string         `json:"class"`
	Team       string         `json:"team"`
	Position   Position       `json:"position"`
	Stats      Stats          `json:"stats"`
	Distance   float64        `json:"distance"`
	Armed      bool           `json:"armed"`
	Range      float64        `json:"range"`
	CoolDown   int            `json:"coolDown"`
	Destroyed  bool           `json:"destroyed"`
	Guidance   ControllerKind `json:"guidance,omitempty"`
	Controller *Controller    `json:"controller,omitempty"`
}

// bulletID names the shot-th bullet of a ship
func bulletID(shipID string, shot int) string {
	return fmt.Sprintf("%s%d", shipID, shot)
}

// Body returns the collision body of the bullet
func (b Bullet) Body() Body {
	return Body{Position: b.Position, Stats: b.Stats}
}

// Step moves the bullet one sub-step and expires it past its range
func (b Bullet) Step() Bullet {
	b.Position = Advance(b.Position)
	b.Distance += math.Abs(b.Position.Speed)
	if b.Distance > b.Range {
		b.Destroyed = true
	}
	return b
}

// Clone returns a copy that shares no mutable memory with b
func (b Bullet) Clone() Bullet {
	if b.Controller != nil {
		c := *b.Controller
		b.Controller = &c
	}
	return b
}
