package agent

import (
	"context"
	"math"

	"spacesim/internal/engine"
)

const (
	mineLayerCruise = 0.3
	// mines stay passive this many sub-steps after being dropped
	mineArmDelay = 200
	// torpedoes ignore radar for this many sub-steps
	torpedoArmDelay = 50
	// mines park ahead of the ship and off to one side of its track
	mineOffset = 80.0
)

// MineLayer drops mines along its path and fires guided torpedoes at
// anything it sees
type MineLayer struct{}

func NewMineLayer() *MineLayer {
	return &MineLayer{}
}

func (m *MineLayer) Decide(ctx context.Context, in engine.AgentContext) (engine.Response, error) {
	ship := in.Stats
	resp := engine.Response{Memory: in.Memory}

	if target, ok := engine.NearestEnemy(in.Radar, ship.Position.Pos, ship.Team); ok {
		if w, ok := readyWeapon(ship, engine.Homing, engine.Torpedo); ok {
			resp.Instruction = engine.Fire(w, &engine.FireTarget{Target: target.Position.Pos, ArmedTime: torpedoArmDelay})
			return resp, nil
		}
	}
	if w, ok := readyWeapon(ship, engine.Mine); ok {
		resp.Instruction = engine.Fire(w, &engine.FireTarget{Target: mineSpot(ship), ArmedTime: mineArmDelay})
		return resp, nil
	}
	resp.Instruction = cruise(ship, mineLayerCruise)
	return resp, nil
}

// mineSpot alternates sides so the layer never flies through its own field
func mineSpot(ship engine.Ship) engine.Point {
	side := math.Pi / 2
	if ship.BulletsFired%2 == 1 {
		side = -side
	}
	dir := ship.Position.Direction
	return engine.Point{
		X: ship.Position.Pos.X + mineOffset*(math.Cos(dir)+math.Cos(dir+side)),
		Y: ship.Position.Pos.Y + mineOffset*(math.Sin(dir)+math.Sin(dir+side)),
	}
}
