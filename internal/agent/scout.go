package agent

import (
	"context"

	"spacesim/internal/engine"
)

const scoutCruise = 1.0

// Scout flies wide circles and reports every enemy it sees
type Scout struct {
	// Turn is the heading change per tick, zero for half the ship's turn rate
	Turn float64
}

func NewScout() *Scout {
	return &Scout{}
}

func (s *Scout) Decide(ctx context.Context, in engine.AgentContext) (engine.Response, error) {
	ship := in.Stats
	resp := engine.Response{Memory: in.Memory}

	contacts := engine.CloseEnemies(in.Radar, ship.Position.Pos, ship.Team, false)
	if len(contacts) > 0 {
		resp.Messages = sightings(contacts, in.Tick)
	}

	// alternate between holding speed and turning
	if in.Tick%2 == 0 {
		resp.Instruction = cruise(ship, scoutCruise)
		if resp.Instruction.Kind != engine.KindIdle {
			return resp, nil
		}
	}
	turn := s.Turn
	if turn == 0 {
		turn = ship.Stats.Turn / 2
	}
	resp.Instruction = engine.Turn(turn)
	return resp, nil
}
