package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spacesim/internal/agent"
	"spacesim/internal/blueprint"
	"spacesim/internal/engine"
	"spacesim/internal/protocol"
	"spacesim/internal/scenario"
	"spacesim/internal/store"
	"spacesim/internal/transport"
)

// RemoteAgentName marks ships flown by an agent host connecting over
// the network. They idle until a host attaches.
const RemoteAgentName = "remote"

var (
	ErrNotRemote = errors.New("ship is not remotely controlled")
	ErrFinished  = errors.New("match finished")
)

// Options tunes a running match
type Options struct {
	TickRate      time.Duration
	SnapshotEvery int   // persist every n-th tick, 0 only keeps the first and last
	MaxTicks      int64 // hard cap on top of the scenario's end condition
	Engine        engine.Config
}

// Deps are the optional collaborators of a runner; nil fields are skipped
type Deps struct {
	DB       *store.DB
	Archiver *store.Archiver
	Hub      *transport.Hub
	Log      zerolog.Logger
}

// Result is the outcome of a finished match
type Result struct {
	Ticks   int64    `json:"ticks"`
	Winners []string `json:"winners"`
	Ended   bool     `json:"ended"` // false when stopped before the end condition
}

// Info is a point-in-time summary of a match
type Info struct {
	ID       string   `json:"id"`
	Scenario string   `json:"scenario"`
	Tick     int64    `json:"tick"`
	Teams    []string `json:"teams"`
	Alive    []string `json:"alive"`
	Ended    bool     `json:"ended"`
	Watchers int      `json:"watchers"`
	Waiting  []string `json:"waiting,omitempty"` // remote ships without a host
}

// Runner drives one match in real time
type Runner struct {
	ID       string
	Scenario string
	Started  time.Time

	eng     *engine.Engine
	roster  map[string]scenario.Assignment
	deps    Deps
	opts    Options
	log     zerolog.Logger
	metrics *metrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	remotes map[string]*transport.RemoteAgent
	result  Result
}

// NewRunner builds the match described by sc
func NewRunner(id string, sc *scenario.Scenario, tables *blueprint.Tables, deps Deps, opts Options) (*Runner, error) {
	st, roster, err := sc.Build(tables)
	if err != nil {
		return nil, err
	}
	agents := make(map[string]engine.Agent, len(roster))
	byShip := make(map[string]scenario.Assignment, len(roster))
	for _, a := range roster {
		byShip[a.ShipID] = a
		switch a.Agent {
		case "", RemoteAgentName:
			continue
		}
		ag, err := agent.ByName(a.Agent)
		if err != nil {
			return nil, fmt.Errorf("ship %s: %w", a.ShipID, err)
		}
		agents[a.ShipID] = ag
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 50 * time.Millisecond
	}

	r := &Runner{
		ID:       id,
		Scenario: sc.Name,
		roster:   byShip,
		deps:     deps,
		opts:     opts,
		log:      deps.Log.With().Str("match", id).Logger(),
		metrics:  m,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		remotes:  make(map[string]*transport.RemoteAgent),
	}

	ender := sc.Ender()
	if opts.MaxTicks > 0 {
		ender = engine.AnyOf(ender, engine.TimeLimit(opts.MaxTicks))
	}
	r.eng = engine.New(st, agents, ender,
		engine.WithConfig(opts.Engine),
		engine.WithLogger(r.log),
		engine.WithObserver(r),
	)
	return r, nil
}

// Engine exposes the underlying scheduler
func (r *Runner) Engine() *engine.Engine {
	return r.eng
}

// Attach hands a remote ship to an agent host, replacing any previous one
func (r *Runner) Attach(shipID string, ra *transport.RemoteAgent) error {
	a, ok := r.roster[shipID]
	if !ok || a.Agent != RemoteAgentName {
		return fmt.Errorf("%s: %w", shipID, ErrNotRemote)
	}
	select {
	case <-r.done:
		return ErrFinished
	default:
	}

	r.mu.Lock()
	prev := r.remotes[shipID]
	r.remotes[shipID] = ra
	r.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	r.eng.SetAgent(shipID, ra)
	r.log.Info().Str("ship", shipID).Msg("agent host attached")
	return ra.Hello(r.ID, a.Team)
}

// Run ticks the match until it ends, Stop is called or ctx is done
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("match %s already running", r.ID)
	}
	r.running = true
	r.Started = time.Now()
	r.mu.Unlock()
	defer close(r.done)

	r.metrics.active.Add(context.Background(), 1)
	defer r.metrics.active.Add(context.Background(), -1)

	if r.deps.DB != nil {
		if err := r.deps.DB.RecordMatch(r.ID, r.Scenario, r.Started); err != nil {
			if cerr := r.eng.Close(); cerr != nil {
				r.log.Warn().Err(cerr).Msg("agent teardown")
			}
			return err
		}
	}
	st := r.eng.State()
	r.persist(st)
	r.log.Info().Str("scenario", r.Scenario).Int("ships", len(st.Ships)).Msg("match started")

	ticker := time.NewTicker(r.opts.TickRate)
	defer ticker.Stop()

	for !st.EndOfGame {
		select {
		case <-ticker.C:
			st = r.eng.Step(ctx, 1)
			r.metrics.tick(r.Scenario)
			if r.deps.Hub != nil {
				r.deps.Hub.Broadcast(r.ID, protocol.MsgState, st)
			}
			if every := int64(r.opts.SnapshotEvery); every > 0 && st.TimeElapsed%every == 0 {
				r.persist(st)
			}
		case <-r.stop:
			return r.finish(st, false)
		case <-ctx.Done():
			r.finish(st, false)
			return ctx.Err()
		}
	}
	return r.finish(st, true)
}

// Stop terminates the match loop
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// Done is closed once Run returned
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome; it is only meaningful after Done
func (r *Runner) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Info summarizes the live match
func (r *Runner) Info() Info {
	st := r.eng.State()
	info := Info{
		ID:       r.ID,
		Scenario: r.Scenario,
		Tick:     st.TimeElapsed,
		Teams:    st.Teams,
		Alive:    st.AliveTeams(),
		Ended:    st.EndOfGame,
	}
	if r.deps.Hub != nil {
		info.Watchers = r.deps.Hub.Watchers(r.ID)
	}
	r.mu.Lock()
	for id, a := range r.roster {
		if a.Agent == RemoteAgentName && r.remotes[id] == nil {
			info.Waiting = append(info.Waiting, id)
		}
	}
	r.mu.Unlock()
	return info
}

func (r *Runner) finish(st engine.State, ended bool) error {
	res := Result{Ticks: st.TimeElapsed, Ended: ended}
	if ended {
		res.Winners = st.AliveTeams()
	} else {
		// agents are closed by the engine only on a natural end
		if err := r.eng.Close(); err != nil {
			r.log.Warn().Err(err).Msg("agent teardown")
		}
	}
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()

	r.persist(st)
	if r.deps.DB != nil {
		if err := r.deps.DB.FinishMatch(r.ID, res.Ticks, res.Winners, time.Now()); err != nil {
			r.log.Error().Err(err).Msg("record result")
			return err
		}
	}
	r.log.Info().Int64("ticks", res.Ticks).Strs("winners", res.Winners).Bool("ended", ended).Msg("match finished")
	return nil
}

func (r *Runner) persist(st engine.State) {
	if r.deps.DB == nil {
		return
	}
	data, err := protocol.EncodeSnapshot(protocol.NewSnapshot(r.ID, st))
	if err != nil {
		r.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	if err := r.deps.DB.SaveSnapshot(r.ID, st.TimeElapsed, data); err != nil {
		r.log.Error().Err(err).Msg("save snapshot")
	}
}

// Notify receives engine events on the stepping goroutine
func (r *Runner) Notify(ev engine.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case engine.EventExplosion:
		r.metrics.explosions.Add(ctx, 1)
	case engine.EventAgentError:
		r.metrics.agentErrors.Add(ctx, 1)
	case engine.EventEnd:
		r.mu.Lock()
		for _, ra := range r.remotes {
			ra.End(protocol.EndMsg{Tick: ev.Tick, Winners: ev.Winners})
		}
		r.mu.Unlock()
		if r.deps.Hub != nil {
			r.deps.Hub.Broadcast(r.ID, protocol.MsgEnd, protocol.EndMsg{Tick: ev.Tick, Winners: ev.Winners})
		}
	}

	if r.deps.Hub != nil && ev.Kind != engine.EventEnd {
		r.deps.Hub.Broadcast(r.ID, protocol.MsgEvent, ev)
	}
	if r.deps.Archiver != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		r.deps.Archiver.Track(store.EventRow{
			MatchID: r.ID,
			Tick:    ev.Tick,
			Kind:    ev.Kind.String(),
			ShipID:  ev.ShipID,
			Data:    string(data),
		})
	}
}
