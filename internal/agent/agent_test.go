package agent

import (
	"context"
	"errors"
	"math"
	"testing"

	"spacesim/internal/engine"
)

func fighter(team string) engine.Ship {
	return engine.Ship{
		ID:    "f",
		Team:  team,
		Stats: engine.Stats{Acceleration: 0.01, Turn: math.Pi / 30, Size: 8, Detection: 200},
		Weapons: []engine.WeaponSlot{{
			Bullet: engine.Bullet{Position: engine.Position{Speed: 3}, Stats: engine.Stats{Size: 1}, Range: 300, CoolDown: 30},
			Ammo:   15,
		}},
	}
}

func enemyAt(x, y float64) engine.RadarResult {
	return engine.RadarResult{Position: engine.Position{Pos: engine.Point{X: x, Y: y}}, Team: "blue", Size: 8}
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		a, err := ByName(name)
		if err != nil || a == nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ByName("skynet"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestIdleKeepsMemory(t *testing.T) {
	resp, err := Idle{}.Decide(context.Background(), engine.AgentContext{Memory: 42})
	if err != nil || resp.Instruction.Kind != engine.KindIdle || resp.Memory != 42 {
		t.Errorf("unexpected response %+v %v", resp, err)
	}
}

func TestHunterFiresAtTargetAhead(t *testing.T) {
	h := NewHunter()
	resp, err := h.Decide(context.Background(), engine.AgentContext{
		Stats: fighter("red"),
		Radar: []engine.RadarResult{enemyAt(100, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Instruction.Kind != engine.KindFire || resp.Instruction.Weapon != 0 {
		t.Errorf("expected fire, got %+v", resp.Instruction)
	}
	if len(resp.Logs) != 1 || resp.Logs[0] != "target acquired" {
		t.Errorf("expected a notice log, got %v", resp.Logs)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("expected one sighting, got %v", resp.Messages)
	}
	if s := resp.Messages[0].(Sighting); s.X != 100 || s.Team != "blue" {
		t.Errorf("unexpected sighting %+v", s)
	}
	if mem := resp.Memory.(HunterMemory); !mem.Tracking {
		t.Error("hunter should be tracking")
	}
}

func TestHunterTurnsTowardTarget(t *testing.T) {
	resp, _ := NewHunter().Decide(context.Background(), engine.AgentContext{
		Stats: fighter("red"),
		Radar: []engine.RadarResult{enemyAt(0, 100)},
	})
	if resp.Instruction.Kind != engine.KindTurn || resp.Instruction.Arg <= 0 {
		t.Errorf("expected a left turn, got %+v", resp.Instruction)
	}
}

func TestHunterIgnoresTeammates(t *testing.T) {
	mate := enemyAt(100, 0)
	mate.Team = "red"
	resp, _ := NewHunter().Decide(context.Background(), engine.AgentContext{
		Stats: fighter("red"),
		Radar: []engine.RadarResult{mate},
	})
	if resp.Instruction.Kind == engine.KindFire {
		t.Error("hunter must not fire at its own team")
	}
}

func TestHunterLosesTarget(t *testing.T) {
	resp, _ := NewHunter().Decide(context.Background(), engine.AgentContext{
		Stats:  fighter("red"),
		Memory: HunterMemory{Tracking: true},
		Tick:   1,
	})
	if len(resp.Logs) != 1 || resp.Logs[0] != "scanning" {
		t.Errorf("expected a lost log, got %v", resp.Logs)
	}
	if resp.Instruction.Kind != engine.KindThrust {
		t.Errorf("idle hunter should cruise, got %+v", resp.Instruction)
	}
}

func TestHunterFollowsTeamSightings(t *testing.T) {
	resp, _ := NewHunter().Decide(context.Background(), engine.AgentContext{
		Stats:    fighter("red"),
		Messages: []any{map[string]any{"x": int64(0), "y": int8(100), "team": "blue", "tick": uint8(4)}},
		Tick:     5,
	})
	if resp.Instruction.Kind != engine.KindTurn || resp.Instruction.Arg <= 0 {
		t.Errorf("expected a turn toward the sighting, got %+v", resp.Instruction)
	}
	mem := resp.Memory.(HunterMemory)
	if mem.Last == nil || mem.Last.Y != 100 || mem.Last.Tick != 4 {
		t.Errorf("sighting not remembered: %+v", mem.Last)
	}
}

func TestHunterForgetsOldSightings(t *testing.T) {
	resp, _ := NewHunter().Decide(context.Background(), engine.AgentContext{
		Stats:  fighter("red"),
		Memory: HunterMemory{Last: &Sighting{X: 0, Y: 100, Tick: 1}},
		Tick:   1 + sightingTTL + 1,
	})
	if resp.Memory.(HunterMemory).Last != nil {
		t.Error("stale sighting should be dropped")
	}
}

func TestScoutReports(t *testing.T) {
	ship := fighter("red")
	ship.Position.Speed = scoutCruise
	resp, _ := NewScout().Decide(context.Background(), engine.AgentContext{
		Stats: ship,
		Radar: []engine.RadarResult{enemyAt(50, 50), enemyAt(-50, 0)},
	})
	if len(resp.Messages) != 2 {
		t.Errorf("expected 2 sightings, got %d", len(resp.Messages))
	}
	if resp.Instruction.Kind != engine.KindTurn {
		t.Errorf("scout at cruise speed should turn, got %+v", resp.Instruction)
	}
}

func bomber() engine.Ship {
	ship := fighter("red")
	ship.Stats.Size = 16
	ship.Weapons = []engine.WeaponSlot{
		{Bullet: engine.Bullet{Guidance: engine.Homing}, Ammo: 1},
		{Bullet: engine.Bullet{Guidance: engine.Mine}, Ammo: 1},
	}
	return ship
}

func TestMineLayerDropsMines(t *testing.T) {
	resp, _ := NewMineLayer().Decide(context.Background(), engine.AgentContext{Stats: bomber()})
	in := resp.Instruction
	if in.Kind != engine.KindFire || in.Weapon != 1 || in.Target == nil {
		t.Fatalf("expected a mine drop, got %+v", in)
	}
	if in.Target.ArmedTime != mineArmDelay {
		t.Errorf("expected armed time %d, got %d", mineArmDelay, in.Target.ArmedTime)
	}
	if d := engine.Distance(in.Target.Target, engine.Point{}); d < mineOffset {
		t.Errorf("mine should be parked away from the ship, got %f", d)
	}
}

func TestMineLayerTorpedoesEnemies(t *testing.T) {
	resp, _ := NewMineLayer().Decide(context.Background(), engine.AgentContext{
		Stats: bomber(),
		Radar: []engine.RadarResult{enemyAt(0, 150)},
	})
	in := resp.Instruction
	if in.Kind != engine.KindFire || in.Weapon != 0 || in.Target == nil || in.Target.Target.Y != 150 {
		t.Errorf("expected a homing shot at the enemy, got %+v", in)
	}
}

func TestMineLayerCruisesWhenEmpty(t *testing.T) {
	ship := bomber()
	for i := range ship.Weapons {
		ship.Weapons[i].Ammo = 0
	}
	resp, _ := NewMineLayer().Decide(context.Background(), engine.AgentContext{Stats: ship})
	if resp.Instruction.Kind != engine.KindThrust {
		t.Errorf("expected cruise thrust, got %+v", resp.Instruction)
	}
}

func TestParseSighting(t *testing.T) {
	if _, ok := parseSighting("noise"); ok {
		t.Error("strings are not sightings")
	}
	if _, ok := parseSighting(map[string]any{"x": "1", "y": 2.0}); ok {
		t.Error("non numeric coordinates are rejected")
	}
	s, ok := parseSighting(&Sighting{X: 1, Y: 2})
	if !ok || s.X != 1 || s.Y != 2 {
		t.Errorf("unexpected %+v", s)
	}
}
