package main

import (
	"context"
	"testing"

	"spacesim/internal/engine"
)

func peacefulState() engine.State {
	ship := func(id, team string, x float64) engine.Ship {
		return engine.Ship{
			ID:       id,
			Team:     team,
			Position: engine.Position{Pos: engine.Point{X: x, Y: 100}},
			Stats:    engine.Stats{Size: 5, Detection: 50},
		}
	}
	return engine.State{
		Ships: []engine.Ship{ship("a", "red", 100), ship("b", "blue", 900)},
		Size:  engine.Size{Width: 1000, Height: 1000},
		Teams: []string{"red", "blue"},
	}
}

func TestSimulateWithoutLimitStops(t *testing.T) {
	eng := engine.New(peacefulState(), nil, engine.LastTeamStanding)
	got := simulate(context.Background(), eng, 0)
	if got.EndOfGame {
		t.Error("nobody fired, the match should not have ended")
	}
	if got.TimeElapsed != unlimitedRunTicks {
		t.Errorf("expected the run to stop after %d ticks, got %d", unlimitedRunTicks, got.TimeElapsed)
	}
}

func TestSimulateHonorsLimit(t *testing.T) {
	eng := engine.New(peacefulState(), nil, engine.AnyOf(engine.LastTeamStanding, engine.TimeLimit(250)))
	got := simulate(context.Background(), eng, 250)
	if !got.EndOfGame || got.TimeElapsed != 250 {
		t.Errorf("expected the match to end on tick 250, got %d ended=%v", got.TimeElapsed, got.EndOfGame)
	}
}
