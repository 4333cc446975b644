package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kind(k EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func fixed(in Instruction) Agent {
	return AgentFunc(func(ctx context.Context, _ AgentContext) (Response, error) {
		return Response{Instruction: in}, nil
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DecisionTimeout = time.Second
	return cfg
}

func twoShipState() State {
	a := testShip("a", "red")
	b := testShip("b", "blue")
	b.Position.Pos = Point{X: 109, Y: 100}
	return State{
		Ships: []Ship{a, b},
		Size:  Size{Width: 1000, Height: 1000},
		Teams: []string{"red", "blue"},
	}
}

func TestStepBulletExpires(t *testing.T) {
	rec := &recorder{}
	st := State{
		Size: Size{Width: 1000, Height: 1000},
		Bullets: []Bullet{{
			ID:       "x",
			Position: Position{Speed: 2},
			Stats:    Stats{Size: 1},
			Range:    100,
			Distance: 99,
			Armed:    true,
		}},
	}
	e := New(st, nil, nil, WithObserver(rec))
	got := e.Step(context.Background(), 1)

	if len(got.Bullets) != 0 {
		t.Errorf("expected expired bullet to be removed, got %d bullets", len(got.Bullets))
	}
	removed := rec.kind(EventRemove)
	if len(removed) != 1 || len(removed[0].BulletIDs) != 1 || removed[0].BulletIDs[0] != "x" {
		t.Errorf("expected one removal of x, got %+v", removed)
	}
	if got.TimeElapsed != 1 {
		t.Errorf("expected 1 tick elapsed, got %d", got.TimeElapsed)
	}
	if h := e.History(); len(h) != 1 || len(h[0].Bullets) != 1 {
		t.Error("history should hold the state before the tick")
	}
}

func TestBulletStepPastRange(t *testing.T) {
	b := Bullet{Range: 100, Distance: 99, Position: Position{Speed: 2}}.Step()
	if b.Distance != 101 || !b.Destroyed {
		t.Errorf("expected distance 101 and destroyed, got %f %v", b.Distance, b.Destroyed)
	}
}

func TestArmedDelay(t *testing.T) {
	rec := &recorder{}
	agents := map[string]Agent{"a": fixed(Fire(0, nil))}
	e := New(twoShipState(), agents, nil, WithObserver(rec), WithConfig(testConfig()))

	got := e.Step(context.Background(), 1)
	shooter, _ := got.Ship("a")
	target, _ := got.Ship("b")
	if shooter.Destroyed {
		t.Error("shooter must not hit itself")
	}
	if !target.Destroyed {
		t.Error("target overlapping the muzzle should be hit once the bullet is armed")
	}
	explosions := rec.kind(EventExplosion)
	if len(explosions) != 1 || explosions[0].ShipID != "b" || explosions[0].BulletID != "a0" {
		t.Errorf("expected one explosion on b, got %+v", explosions)
	}
	if len(got.Bullets) != 0 {
		t.Error("the bullet should be spent")
	}
}

func TestFindImpactsIgnoresUnarmed(t *testing.T) {
	ships := []Ship{testShip("a", "red")}
	bullet := Bullet{ID: "x", Position: Position{Pos: ships[0].Position.Pos}, Stats: Stats{Size: 1}}
	if hits := findImpacts(Size{Width: 200, Height: 200}, ships, []Bullet{bullet}); len(hits) != 0 {
		t.Errorf("unarmed bullet should not hit, got %+v", hits)
	}
	bullet.Armed = true
	hits := findImpacts(Size{Width: 200, Height: 200}, ships, []Bullet{bullet})
	if len(hits) != 1 || hits[0].ship != 0 || hits[0].bullet != 0 {
		t.Errorf("expected one hit, got %+v", hits)
	}
	if ships[0].Destroyed {
		t.Error("findImpacts must not mutate ships")
	}
}

func TestFindImpactsFirstShip(t *testing.T) {
	a := testShip("a", "red")
	b := testShip("b", "blue")
	b.Position.Pos = Point{X: 104, Y: 100}
	dead := testShip("dead", "blue")
	dead.Destroyed = true
	bullet := Bullet{ID: "x", Position: Position{Pos: Point{X: 102, Y: 100}}, Stats: Stats{Size: 1}, Armed: true}

	hits := findImpacts(Size{Width: 200, Height: 200}, []Ship{b, a, dead}, []Bullet{bullet})
	if len(hits) != 1 || hits[0].ship != 0 {
		t.Errorf("expected the first ship in order, got %+v", hits)
	}
}

func TestWreckAbsorbsBullet(t *testing.T) {
	wreck := testShip("wreck", "blue")
	wreck.Destroyed = true
	live := testShip("live", "blue")
	live.Position.Pos = Point{X: 104, Y: 100}
	bullet := Bullet{ID: "x", Position: Position{Pos: Point{X: 102, Y: 100}}, Stats: Stats{Size: 1}, Armed: true}

	hits := findImpacts(Size{Width: 200, Height: 200}, []Ship{wreck, live}, []Bullet{bullet})
	if len(hits) != 1 || hits[0].ship != 0 {
		t.Fatalf("expected the wreck in front to take the hit, got %+v", hits)
	}

	rec := &recorder{}
	st := State{
		Ships:   []Ship{wreck, live},
		Bullets: []Bullet{bullet},
		Size:    Size{Width: 200, Height: 200},
		Teams:   []string{"blue"},
	}
	e := New(st, nil, nil, WithConfig(testConfig()), WithObserver(rec))
	e.subStep(&e.state)
	if e.state.Ships[1].Destroyed {
		t.Error("the ship behind the wreck must survive")
	}
	if len(e.state.Bullets) != 0 {
		t.Errorf("the wreck should absorb the bullet, %d left", len(e.state.Bullets))
	}
	ex := rec.kind(EventExplosion)
	if len(ex) != 1 || ex[0].ShipID != "wreck" {
		t.Errorf("expected one explosion on the wreck, got %+v", ex)
	}
}

func TestFindImpactsOffBoard(t *testing.T) {
	a := testShip("a", "red")
	a.Position.Pos = Point{X: -500, Y: 5000}
	bullet := Bullet{ID: "x", Position: Position{Pos: Point{X: -495, Y: 5000}}, Stats: Stats{Size: 1}, Armed: true}
	if hits := findImpacts(Size{Width: 100, Height: 100}, []Ship{a}, []Bullet{bullet}); len(hits) != 1 {
		t.Error("items off the board should still collide")
	}
}

func TestSubSteps(t *testing.T) {
	st := State{Ships: []Ship{testShip("a", "red")}}
	st.Ships[0].Position.Speed = 1

	got := New(st, nil, nil).Step(context.Background(), 1)
	if !near(got.Ships[0].Position.Pos.X, 110) {
		t.Errorf("expected x 110 after 10 sub-steps, got %f", got.Ships[0].Position.Pos.X)
	}

	cfg := DefaultConfig()
	cfg.SubSteps = 3
	got = New(st, nil, nil, WithConfig(cfg)).Step(context.Background(), 1)
	if !near(got.Ships[0].Position.Pos.X, 103) {
		t.Errorf("expected x 103 after 3 sub-steps, got %f", got.Ships[0].Position.Pos.X)
	}
}

func TestEndOfGameFiresOnce(t *testing.T) {
	rec := &recorder{}
	e := New(twoShipState(), nil, TimeLimit(3), WithObserver(rec))

	got := e.Step(context.Background(), 10)
	if got.TimeElapsed != 3 || !got.EndOfGame {
		t.Errorf("expected end after 3 ticks, got %d ended=%v", got.TimeElapsed, got.EndOfGame)
	}
	got = e.Step(context.Background(), 5)
	if got.TimeElapsed != 3 {
		t.Error("no ticks may run after the end of the game")
	}
	if ends := rec.kind(EventEnd); len(ends) != 1 {
		t.Errorf("expected exactly one end event, got %d", len(ends))
	}

	transitions := 0
	prev := false
	for _, s := range append(e.History(), got) {
		if s.EndOfGame && !prev {
			transitions++
		}
		if prev && !s.EndOfGame {
			t.Error("end of game went back to false")
		}
		prev = s.EndOfGame
	}
	if transitions != 1 {
		t.Errorf("expected one false->true transition, got %d", transitions)
	}
}

func TestLastTeamStanding(t *testing.T) {
	rec := &recorder{}
	agents := map[string]Agent{"a": fixed(Fire(0, nil))}
	e := New(twoShipState(), agents, LastTeamStanding, WithObserver(rec), WithConfig(testConfig()))

	got := e.Step(context.Background(), 5)
	if !got.EndOfGame || got.TimeElapsed != 1 {
		t.Errorf("expected the match to end on tick 1, got %d ended=%v", got.TimeElapsed, got.EndOfGame)
	}
	ends := rec.kind(EventEnd)
	if len(ends) != 1 || len(ends[0].Winners) != 1 || ends[0].Winners[0] != "red" {
		t.Errorf("expected red to win, got %+v", ends)
	}
}

type closingAgent struct {
	mu     sync.Mutex
	closed int
}

func (c *closingAgent) Decide(ctx context.Context, in AgentContext) (Response, error) {
	return Response{}, nil
}

func (c *closingAgent) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return errors.New("already gone")
}

func TestAgentsClosedAtEnd(t *testing.T) {
	host := &closingAgent{}
	e := New(twoShipState(), map[string]Agent{"a": host}, TimeLimit(1), WithConfig(testConfig()))
	e.Step(context.Background(), 3)
	if err := e.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if host.closed != 1 {
		t.Errorf("expected the agent to be closed once, got %d", host.closed)
	}
}

func TestDecisionTimeout(t *testing.T) {
	rec := &recorder{}
	done := make(chan struct{})
	slow := AgentFunc(func(ctx context.Context, _ AgentContext) (Response, error) {
		defer close(done)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("agents should get a deadline")
		}
		<-ctx.Done()
		return Response{Instruction: Thrust(1)}, nil
	})
	cfg := DefaultConfig()
	cfg.DecisionTimeout = 5 * time.Millisecond
	e := New(twoShipState(), map[string]Agent{"a": slow}, nil, WithConfig(cfg), WithObserver(rec))

	start := time.Now()
	got := e.Step(context.Background(), 1)
	if time.Since(start) > time.Second {
		t.Error("a slow agent must not stall the tick")
	}
	<-done
	if ship, _ := got.Ship("a"); ship.Position.Speed != 0 {
		t.Errorf("late answer should be discarded, speed %f", ship.Position.Speed)
	}
	if len(rec.kind(EventAgentError)) != 0 {
		t.Error("a timeout is not an agent error")
	}
}

func TestFailingAgentsIdle(t *testing.T) {
	rec := &recorder{}
	st := twoShipState()
	st.Ships[1].Position.Pos = Point{X: 500, Y: 500}
	third := testShip("c", "blue")
	third.Position.Pos = Point{X: 800, Y: 800}
	st.Ships = append(st.Ships, third)

	agents := map[string]Agent{
		"a": AgentFunc(func(context.Context, AgentContext) (Response, error) {
			return Response{Instruction: Thrust(1)}, errors.New("sandbox crashed")
		}),
		"b": AgentFunc(func(context.Context, AgentContext) (Response, error) {
			panic("boom")
		}),
		"c": fixed(Turn(math.NaN())),
	}
	e := New(st, agents, nil, WithConfig(testConfig()), WithObserver(rec))
	got := e.Step(context.Background(), 1)

	for _, ship := range got.Ships {
		if ship.Position.Speed != 0 || ship.Position.Direction != 0 {
			t.Errorf("ship %s should have idled, got %+v", ship.ID, ship.Position)
		}
	}
	errs := rec.kind(EventAgentError)
	if len(errs) != 2 {
		t.Fatalf("expected 2 agent errors, got %+v", errs)
	}
	seen := map[string]bool{}
	for _, ev := range errs {
		seen[ev.ShipID] = true
		if ev.Error == "" {
			t.Error("error event should carry the message")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("expected errors for a and b, got %+v", errs)
	}
}

func TestDestroyedShipsNotPolled(t *testing.T) {
	st := twoShipState()
	st.Ships[1].Destroyed = true
	called := false
	agents := map[string]Agent{
		"b": AgentFunc(func(context.Context, AgentContext) (Response, error) {
			called = true
			return Response{}, nil
		}),
	}
	New(st, agents, nil, WithConfig(testConfig())).Step(context.Background(), 2)
	if called {
		t.Error("destroyed ships must not be polled")
	}
}

func TestAgentMemoryAndLogs(t *testing.T) {
	rec := &recorder{}
	var mu sync.Mutex
	var seen []any
	agent := AgentFunc(func(ctx context.Context, in AgentContext) (Response, error) {
		mu.Lock()
		seen = append(seen, in.Memory)
		mu.Unlock()
		return Response{Memory: in.Tick + 1, Logs: []string{"thinking"}}, nil
	})
	e := New(twoShipState(), map[string]Agent{"a": agent}, nil, WithConfig(testConfig()), WithObserver(rec))
	e.Step(context.Background(), 3)

	if len(seen) != 3 || seen[0] != nil || seen[1] != int64(1) || seen[2] != int64(2) {
		t.Errorf("unexpected memory sequence %v", seen)
	}
	logs := rec.kind(EventAgentLog)
	if len(logs) != 3 || logs[0].ShipID != "a" || logs[0].Lines[0] != "thinking" {
		t.Errorf("expected 3 log events, got %+v", logs)
	}
}

func TestTeamMessages(t *testing.T) {
	st := twoShipState()
	mate := testShip("a2", "red")
	mate.Position.Pos = Point{X: 300, Y: 300}
	st.Ships = append(st.Ships, mate)

	var mu sync.Mutex
	inbox := map[string][][]any{}
	listener := func(send bool) Agent {
		return AgentFunc(func(ctx context.Context, in AgentContext) (Response, error) {
			mu.Lock()
			inbox[in.Stats.ID] = append(inbox[in.Stats.ID], in.Messages)
			mu.Unlock()
			if send && in.Tick == 0 {
				return Response{Messages: []any{"contact"}}, nil
			}
			return Response{}, nil
		})
	}
	agents := map[string]Agent{"a": listener(true), "a2": listener(false), "b": listener(false)}
	e := New(st, agents, nil, WithConfig(testConfig()))
	got := e.Step(context.Background(), 3)

	for _, id := range []string{"a", "a2"} {
		msgs := inbox[id]
		if len(msgs) != 3 {
			t.Fatalf("%s: expected 3 polls, got %d", id, len(msgs))
		}
		if len(msgs[0]) != 0 || len(msgs[1]) != 1 || msgs[1][0] != "contact" || len(msgs[2]) != 0 {
			t.Errorf("%s: expected the message exactly on the next poll, got %v", id, msgs)
		}
	}
	for _, polled := range inbox["b"] {
		if len(polled) != 0 {
			t.Errorf("other teams must not read red messages, got %v", polled)
		}
	}
	red := got.Comm["red"].History()
	if len(red) != 1 || red[0].TimeSent != 0 {
		t.Errorf("expected one message stamped at tick 0, got %+v", red)
	}
}

func TestNewCopiesState(t *testing.T) {
	st := twoShipState()
	e := New(st, nil, nil)
	st.Ships[0].Position.Pos.X = 9999
	st.Ships[0].Weapons[0].Ammo = 42
	got := e.State()
	if got.Ships[0].Position.Pos.X == 9999 || got.Ships[0].Weapons[0].Ammo == 42 {
		t.Error("engine must own its copy of the state")
	}
	got.Ships[0].Destroyed = true
	if e.State().Ships[0].Destroyed {
		t.Error("State must return a copy")
	}
}

func TestStepStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := New(twoShipState(), nil, nil).Step(ctx, 5)
	if got.TimeElapsed != 0 {
		t.Errorf("expected no ticks, got %d", got.TimeElapsed)
	}
}

func TestHistorySnapshotsKeepTheirMessages(t *testing.T) {
	st := twoShipState()
	chatty := AgentFunc(func(ctx context.Context, in AgentContext) (Response, error) {
		return Response{Messages: []any{in.Tick}}, nil
	})
	e := New(st, map[string]Agent{"a": chatty}, nil, WithConfig(testConfig()))
	e.Step(context.Background(), 3)

	h := e.History()
	if len(h) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(h))
	}
	for i, snap := range h {
		if n := snap.Comm["red"].Len(); n != i {
			t.Errorf("snapshot %d: expected %d messages, got %d", i, i, n)
		}
	}
	if n := e.State().Comm["red"].Len(); n != 3 {
		t.Errorf("expected 3 messages on the live channel, got %d", n)
	}
}

func TestHistoryLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	e := New(twoShipState(), nil, nil, WithConfig(cfg))
	e.Step(context.Background(), 5)
	h := e.History()
	if len(h) != 2 || h[0].TimeElapsed != 3 || h[1].TimeElapsed != 4 {
		t.Errorf("expected the last two snapshots, got %d", len(h))
	}
}
