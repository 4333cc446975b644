// Package agent holds the built-in decision agents
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"spacesim/internal/engine"
)

// ErrUnknownAgent is returned by ByName for unregistered names
var ErrUnknownAgent = errors.New("unknown agent")

var registry = map[string]func() engine.Agent{
	"idle":       func() engine.Agent { return Idle{} },
	"hunter":     func() engine.Agent { return NewHunter() },
	"scout":      func() engine.Agent { return NewScout() },
	"mine-layer": func() engine.Agent { return NewMineLayer() },
}

// ByName returns a fresh built-in agent
func ByName(name string) (engine.Agent, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownAgent)
	}
	return build(), nil
}

// Names lists the built-in agents
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Idle never does anything
type Idle struct{}

func (Idle) Decide(ctx context.Context, in engine.AgentContext) (engine.Response, error) {
	return engine.Response{Instruction: engine.Idle(), Memory: in.Memory}, nil
}

// Sighting is the payload agents share about enemy contacts
type Sighting struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Team string  `json:"team"`
	Tick int64   `json:"tick"`
}

// parseSighting accepts both in-process sightings and the generic maps
// remote hosts produce
func parseSighting(payload any) (Sighting, bool) {
	switch v := payload.(type) {
	case Sighting:
		return v, true
	case *Sighting:
		if v == nil {
			return Sighting{}, false
		}
		return *v, true
	case map[string]any:
		x, okX := number(v["x"])
		y, okY := number(v["y"])
		if !okX || !okY {
			return Sighting{}, false
		}
		s := Sighting{X: x, Y: y}
		s.Team, _ = v["team"].(string)
		if tick, ok := number(v["tick"]); ok {
			s.Tick = int64(tick)
		}
		return s, true
	}
	return Sighting{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// sightings lists enemy contacts as team messages
func sightings(contacts []engine.Contact, tick int64) []any {
	out := make([]any, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, Sighting{X: c.Position.Pos.X, Y: c.Position.Pos.Y, Team: c.Team, Tick: tick})
	}
	return out
}

// readyWeapon returns the first weapon firing the given guidance that can
// shoot right now
func readyWeapon(ship engine.Ship, guidance ...engine.ControllerKind) (int, bool) {
	for i, w := range ship.Weapons {
		if w.Ammo <= 0 || w.CoolDown > 0 {
			continue
		}
		for _, g := range guidance {
			if w.Bullet.Guidance == g {
				return i, true
			}
		}
	}
	return 0, false
}

// cruise holds speed around target
func cruise(ship engine.Ship, target float64) engine.Instruction {
	c := engine.Controls{Stats: ship.Stats}
	switch {
	case ship.Position.Speed < target:
		return c.Thrust(0)
	case ship.Position.Speed > target+ship.Stats.Acceleration:
		return engine.Thrust(-ship.Stats.Acceleration)
	}
	return c.Idle()
}
