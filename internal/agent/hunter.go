package agent

import (
	"context"
	"math"

	"spacesim/internal/engine"
)

const (
	hunterOptimalRange = 150.0
	hunterCruise       = 0.5
	hunterChase        = 1.0
	// sightings older than this many ticks are ignored
	sightingTTL = 30
)

var hunterPhrases = map[string][]string{
	"notice": {"target acquired", "engaging", "I see you"},
	"lost":   {"lost visual", "scanning", "where did they go"},
}

func phrase(pool string, tick int64) string {
	p := hunterPhrases[pool]
	return p[int(tick)%len(p)]
}

// HunterMemory is what a hunter remembers between ticks
type HunterMemory struct {
	Tracking bool
	Last     *Sighting
}

// Hunter closes on the nearest enemy, leads its shots and shares what it
// sees with the team
type Hunter struct {
	OptimalRange float64
}

func NewHunter() *Hunter {
	return &Hunter{OptimalRange: hunterOptimalRange}
}

func (h *Hunter) Decide(ctx context.Context, in engine.AgentContext) (engine.Response, error) {
	mem, _ := in.Memory.(HunterMemory)
	ship := in.Stats
	resp := engine.Response{}

	for _, m := range in.Messages {
		if s, ok := parseSighting(m); ok && s.Team != ship.Team {
			if mem.Last == nil || s.Tick >= mem.Last.Tick {
				sc := s
				mem.Last = &sc
			}
		}
	}

	contacts := engine.CloseEnemies(in.Radar, ship.Position.Pos, ship.Team, false)
	target, found := engine.NearestEnemy(in.Radar, ship.Position.Pos, ship.Team)
	if found {
		if !mem.Tracking {
			resp.Logs = append(resp.Logs, phrase("notice", in.Tick))
		}
		mem.Tracking = true
		mem.Last = &Sighting{X: target.Position.Pos.X, Y: target.Position.Pos.Y, Team: target.Team, Tick: in.Tick}
		resp.Messages = sightings(contacts, in.Tick)
		resp.Instruction = h.engage(ship, target)
	} else {
		if mem.Tracking {
			resp.Logs = append(resp.Logs, phrase("lost", in.Tick))
		}
		mem.Tracking = false
		if mem.Last != nil && in.Tick-mem.Last.Tick > sightingTTL {
			mem.Last = nil
		}
		resp.Instruction = h.search(ship, mem.Last)
	}
	resp.Memory = mem
	return resp, nil
}

// engage aims at the lead point when in range, otherwise keeps the
// preferred distance
func (h *Hunter) engage(ship engine.Ship, target engine.Contact) engine.Instruction {
	dist := math.Sqrt(target.Dist2)
	if w, ok := readyWeapon(ship, engine.Straight, engine.Torpedo, engine.Homing); ok {
		speed := ship.Weapons[w].Bullet.Position.Speed + ship.Position.Speed
		delay := 1
		if speed > 0 {
			delay = int(math.Ceil(dist / speed))
		}
		in := engine.Aim(ship.Position, target.Position, engine.AimOptions{Delay: delay, Weapon: w})
		if in.Kind == engine.KindFire && ship.Weapons[w].Bullet.Guidance != engine.Straight {
			in.Target = &engine.FireTarget{Target: engine.NextPosition(target.Position, delay).Pos}
		}
		if in.Kind == engine.KindFire || dist < h.OptimalRange {
			return in
		}
	}
	if dist > h.OptimalRange && ship.Position.Speed < hunterChase {
		return engine.Controls{Stats: ship.Stats}.Thrust(0)
	}
	if dist < h.OptimalRange/2 && ship.Position.Speed > 0 {
		return engine.Thrust(-ship.Stats.Acceleration)
	}
	return engine.TurnToTarget(ship.Position, target.Position, 1)
}

// search heads for the last known enemy position, or cruises
func (h *Hunter) search(ship engine.Ship, last *Sighting) engine.Instruction {
	if last == nil {
		return cruise(ship, hunterCruise)
	}
	goal := engine.Position{Pos: engine.Point{X: last.X, Y: last.Y}}
	bearing := engine.Angle(ship.Position.Pos, goal.Pos)
	if math.Abs(engine.NormalizeAngle(bearing-ship.Position.Direction)) > ship.Stats.Turn {
		return engine.TurnToTarget(ship.Position, goal, 1)
	}
	return cruise(ship, hunterChase)
}
