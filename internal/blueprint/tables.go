package blueprint

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"spacesim/internal/engine"
)

// ErrUnknownClass is returned for ship or bullet classes missing from the tables
var ErrUnknownClass = errors.New("unknown class")

// Ship classes
const (
	Fighter   = "fighter"
	Scout     = "scout"
	Bomber    = "bomber"
	Cruiser   = "cruiser"
	Stealth   = "stealth"
	Destroyer = "destroyer"
	Base      = "base"
)

// Bullet classes
const (
	Basic         = "basic"
	Fast          = "fast"
	Long          = "long"
	Torpedo       = "torpedo"
	HomingTorpedo = "homing-torpedo"
	Mine          = "mine"
)

// Loadout is a weapon mounted on a ship blueprint
type Loadout struct {
	Bullet string `toml:"bullet" yaml:"bullet"`
	Ammo   int    `toml:"ammo" yaml:"ammo"`
}

// ShipBlueprint holds the stats for a ship class
type ShipBlueprint struct {
	Class   string
	Stats   engine.Stats
	Weapons []Loadout
	Price   int
}

// Tables holds the ship and bullet blueprints. The zero value is empty;
// use Default for the stock tables.
type Tables struct {
	Ships   map[string]ShipBlueprint
	Bullets map[string]engine.Bullet
}

func bullet(class string, speed, size, accel, turn, detection, rng float64, coolDown int, guidance engine.ControllerKind) engine.Bullet {
	return engine.Bullet{
		Class:    class,
		Position: engine.Position{Speed: speed},
		Stats: engine.Stats{
			Acceleration: accel,
			Turn:         turn,
			Size:         size,
			Detection:    detection,
		},
		Range:    rng,
		CoolDown: coolDown,
		Guidance: guidance,
	}
}

// Default returns a fresh copy of the stock tables
func Default() *Tables {
	return &Tables{
		Bullets: map[string]engine.Bullet{
			Basic:         bullet(Basic, 1.5, 1, 0, 0, 0, 400, 60, engine.Straight),
			Fast:          bullet(Fast, 3, 1, 0, 0, 0, 300, 30, engine.Straight),
			Long:          bullet(Long, 2, 1, 0, 0, 0, 1200, 120, engine.Straight),
			Torpedo:       bullet(Torpedo, 0.3, 2, 0.05, math.Pi/60, 0, 1000, 200, engine.Torpedo),
			HomingTorpedo: bullet(HomingTorpedo, 0.3, 2, 0.05, math.Pi/40, 150, 1500, 300, engine.Homing),
			Mine:          bullet(Mine, 0, 3, 0.05, math.Pi/10, 80, 3000, 400, engine.Mine),
		},
		Ships: map[string]ShipBlueprint{
			// Fighter: agile, rapid fire
			Fighter: {
				Class: Fighter,
				Stats: engine.Stats{Acceleration: 0.01, Turn: math.Pi / 30, Size: 8, Detection: 200},
				Weapons: []Loadout{
					{Bullet: Fast, Ammo: 15},
					{Bullet: Fast, Ammo: 15},
				},
				Price: 500,
			},
			// Scout: long radar, unarmed
			Scout: {
				Class: Scout,
				Stats: engine.Stats{Acceleration: 0.05, Turn: math.Pi / 10, Size: 8, Detection: 600},
				Price: 300,
			},
			// Bomber: slow, carries every guided munition
			Bomber: {
				Class: Bomber,
				Stats: engine.Stats{Acceleration: 0.001, Turn: math.Pi / 30, Size: 16, Detection: 400},
				Weapons: []Loadout{
					{Bullet: Torpedo, Ammo: 10},
					{Bullet: HomingTorpedo, Ammo: 8},
					{Bullet: Mine, Ammo: 4},
				},
				Price: 2000,
			},
			Cruiser: {
				Class: Cruiser,
				Stats: engine.Stats{Acceleration: 0.001, Turn: math.Pi / 80, Size: 16, Detection: 400},
				Weapons: []Loadout{
					{Bullet: Basic, Ammo: 10},
					{Bullet: Basic, Ammo: 10},
				},
				Price: 400,
			},
			// Stealth: cloaks while idle
			Stealth: {
				Class:   Stealth,
				Stats:   engine.Stats{Acceleration: 0.002, Turn: math.Pi / 30, Size: 8, Stealth: true, Detection: 200},
				Weapons: []Loadout{{Bullet: Fast, Ammo: 5}},
				Price:   2000,
			},
			Destroyer: {
				Class: Destroyer,
				Stats: engine.Stats{Acceleration: 0.001, Turn: math.Pi / 120, Size: 16, Detection: 400},
				Weapons: []Loadout{
					{Bullet: Long, Ammo: 10},
					{Bullet: Torpedo, Ammo: 8},
				},
				Price: 1000,
			},
			// Base: immobile, huge radar
			Base: {
				Class:   Base,
				Stats:   engine.Stats{Acceleration: 0, Turn: math.Pi / 2000, Size: 128, Detection: 10000},
				Weapons: []Loadout{{Bullet: Torpedo, Ammo: 800}},
				Price:   5000,
			},
		},
	}
}

// Ship returns the blueprint of a ship class
func (t *Tables) Ship(class string) (ShipBlueprint, error) {
	bp, ok := t.Ships[class]
	if !ok {
		return ShipBlueprint{}, fmt.Errorf("ship %q: %w", class, ErrUnknownClass)
	}
	bp.Weapons = append([]Loadout(nil), bp.Weapons...)
	return bp, nil
}

// Bullet returns a copy of the blueprint of a bullet class
func (t *Tables) Bullet(class string) (engine.Bullet, error) {
	b, ok := t.Bullets[class]
	if !ok {
		return engine.Bullet{}, fmt.Errorf("bullet %q: %w", class, ErrUnknownClass)
	}
	return b.Clone(), nil
}

// Price returns the cost of a ship class
func (t *Tables) Price(class string) (int, error) {
	bp, err := t.Ship(class)
	if err != nil {
		return 0, err
	}
	return bp.Price, nil
}

// ShipClasses lists the ship classes in name order
func (t *Tables) ShipClasses() []string {
	out := make([]string, 0, len(t.Ships))
	for class := range t.Ships {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}
