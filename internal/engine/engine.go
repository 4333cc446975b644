package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Engine is the tick scheduler. Step is the only writer of the state;
// State and History may be called from any goroutine.
type Engine struct {
	mu        sync.RWMutex
	state     State
	history   []State
	agents    map[string]Agent
	observers []Observer
	closed    bool

	stepMu  sync.Mutex
	memory  map[string]any
	cursors map[string]int64

	ender EndFunc
	cfg   Config
	log   zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an engine over a copy of state. agents maps ship ids to
// their decision agents; ships without one idle. A nil ender never ends
// the match.
func New(state State, agents map[string]Agent, ender EndFunc, opts ...Option) *Engine {
	e := &Engine{
		state:   state.Clone(),
		agents:  make(map[string]Agent, len(agents)),
		memory:  make(map[string]any),
		cursors: make(map[string]int64),
		ender:   ender,
		cfg:     DefaultConfig(),
		log:     zerolog.Nop(),
	}
	for id, a := range agents {
		e.agents[id] = a
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.withDefaults()
	for _, team := range e.state.Teams {
		e.state.channel(team)
	}
	for _, ship := range e.state.Ships {
		e.state.channel(ship.Team)
	}
	return e
}

// Subscribe registers an observer for future events
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// SetAgent attaches (or replaces) the agent of a ship. It takes effect on
// the next tick.
func (e *Engine) SetAgent(shipID string, a Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[shipID] = a
}

// State returns a copy of the current state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// History returns the snapshots taken before every tick, oldest first
func (e *Engine) History() []State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]State, len(e.history))
	copy(out, e.history)
	return out
}

// Config returns the effective scheduler settings
func (e *Engine) Config() Config {
	return e.cfg
}

// Step advances the match n ticks (at least one) and returns the new
// state. It stops early once the match has ended or ctx is done.
func (e *Engine) Step(ctx context.Context, n int) State {
	if n <= 0 {
		n = 1
	}
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		e.mu.RLock()
		st := e.state.Clone()
		agents := make(map[string]Agent, len(e.agents))
		for id, a := range e.agents {
			agents[id] = a
		}
		e.mu.RUnlock()
		if st.EndOfGame {
			break
		}

		snapshot := st.Clone()
		ended := e.tick(ctx, &st, agents)

		e.mu.Lock()
		e.history = append(e.history, snapshot)
		if limit := e.cfg.HistoryLimit; limit > 0 && len(e.history) > limit {
			e.history = append([]State(nil), e.history[len(e.history)-limit:]...)
		}
		e.state = st
		e.mu.Unlock()

		if ended {
			e.log.Info().Int64("tick", st.TimeElapsed).Strs("winners", st.AliveTeams()).Msg("end of game")
			// observers see the end before agent connections go away
			e.publish(Event{Kind: EventEnd, Tick: st.TimeElapsed, Winners: st.AliveTeams()})
			if err := e.Close(); err != nil {
				e.log.Error().Err(err).Msg("agent teardown")
			}
			break
		}
	}
	return e.State()
}

// tick runs one decision phase and one physics phase on st. It reports
// whether the match ended during this tick.
func (e *Engine) tick(ctx context.Context, st *State, agents map[string]Agent) bool {
	instructions := e.decide(ctx, st, agents)

	for i, ship := range st.Ships {
		if ship.Destroyed {
			continue
		}
		in, ok := instructions[ship.ID]
		if !ok {
			in = Idle()
		}
		next, bullet := ApplyInstruction(ship, in, st.MaxSpeed, e.cfg.StealthTime)
		st.Ships[i] = next
		if bullet != nil {
			st.Bullets = append(st.Bullets, *bullet)
		}
	}

	var removed []string
	for s := 0; s < e.cfg.SubSteps; s++ {
		removed = append(removed, e.subStep(st)...)
	}
	if len(removed) > 0 {
		e.publish(Event{Kind: EventRemove, Tick: st.TimeElapsed, BulletIDs: removed})
	}

	st.TimeElapsed++
	if st.EndOfGame || e.ender == nil {
		return false
	}
	if e.ender(*st) {
		st.EndOfGame = true
		return true
	}
	return false
}

// subStep runs one kinematic sub-step and returns the ids of the bullets
// it removed
func (e *Engine) subStep(st *State) []string {
	for i := range st.Ships {
		st.Ships[i] = st.Ships[i].Step()
	}
	for i, b := range st.Bullets {
		if b.Controller != nil && !b.Destroyed {
			radar := Radar(b.Body(), b.ID, st.Ships)
			next, in := b.Controller.Advance(b, radar)
			b.Controller = &next
			b = applyBulletInstruction(b, in, st.MaxSpeed)
		}
		st.Bullets[i] = b.Step()
	}

	// wrecks absorb bullets too
	for _, hit := range findImpacts(st.Size, st.Ships, st.Bullets) {
		ship := &st.Ships[hit.ship]
		bullet := &st.Bullets[hit.bullet]
		wreck := ship.Destroyed
		ship.Destroyed = true
		bullet.Destroyed = true
		e.log.Debug().Str("ship", ship.ID).Str("bullet", bullet.ID).Bool("wreck", wreck).Int64("tick", st.TimeElapsed).Msg("impact")
		e.publish(Event{
			Kind:     EventExplosion,
			Tick:     st.TimeElapsed,
			ShipID:   ship.ID,
			BulletID: bullet.ID,
			Position: ship.Position.Pos,
		})
	}

	var removed []string
	kept := st.Bullets[:0]
	for _, b := range st.Bullets {
		if b.Destroyed {
			removed = append(removed, b.ID)
			continue
		}
		b.Armed = true
		kept = append(kept, b)
	}
	st.Bullets = kept
	return removed
}

type impact struct {
	ship, bullet int
}

// findImpacts returns, for every armed live bullet, the first ship it
// overlaps, wrecks included. It does not modify its arguments.
func findImpacts(board Size, ships []Ship, bullets []Bullet) []impact {
	largest := 0.0
	for _, s := range ships {
		if s.Stats.Size > largest {
			largest = s.Stats.Size
		}
	}
	g := newGrid(board, largest)
	for i, s := range ships {
		g.insert(s.Position.Pos, s.Stats.Size, i)
	}

	var hits []impact
	var buf []int
	for bi, b := range bullets {
		if b.Destroyed || !b.Armed {
			continue
		}
		buf = g.query(b.Position.Pos, b.Stats.Size, buf[:0])
		first := -1
		for _, si := range buf {
			if first != -1 && si >= first {
				continue
			}
			if Collides(ships[si].Body(), b.Body()) {
				first = si
			}
		}
		if first >= 0 {
			hits = append(hits, impact{ship: first, bullet: bi})
		}
	}
	return hits
}

// Close tears down every agent implementing io.Closer. It is safe to call
// more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	agents := make(map[string]Agent, len(e.agents))
	for id, a := range e.agents {
		agents[id] = a
	}
	e.mu.Unlock()

	var errs []error
	for id, a := range agents {
		c, ok := a.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close agent %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) publish(ev Event) {
	e.mu.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.RUnlock()
	for _, o := range observers {
		o.Notify(ev)
	}
}
