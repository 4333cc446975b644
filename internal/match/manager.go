package match

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/segmentio/ksuid"

	"spacesim/internal/blueprint"
	"spacesim/internal/scenario"
)

const DefaultMaxActive = 16

var ErrTooManyMatches = errors.New("too many active matches")

// Manager creates, tracks and stops running matches
type Manager struct {
	mu      sync.RWMutex
	matches map[string]*Runner
	tables  *blueprint.Tables
	deps    Deps
	opts    Options
	max     int
	wg      sync.WaitGroup
}

// NewManager creates a manager. maxActive <= 0 uses DefaultMaxActive.
func NewManager(tables *blueprint.Tables, deps Deps, opts Options, maxActive int) *Manager {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Manager{
		matches: make(map[string]*Runner),
		tables:  tables,
		deps:    deps,
		opts:    opts,
		max:     maxActive,
	}
}

// Start builds a match from sc and runs it in the background. The match
// is forgotten once it finishes; its archive stays in the store.
func (m *Manager) Start(ctx context.Context, sc *scenario.Scenario) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.matches) >= m.max {
		return nil, ErrTooManyMatches
	}

	r, err := NewRunner(ksuid.New().String(), sc, m.tables, m.deps, m.opts)
	if err != nil {
		return nil, err
	}
	m.matches[r.ID] = r

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Msg("match failed")
		}
		m.mu.Lock()
		delete(m.matches, r.ID)
		m.mu.Unlock()
	}()
	return r, nil
}

// Get returns a running match
func (m *Manager) Get(id string) *Runner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matches[id]
}

// List returns info about all running matches, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	runners := make([]*Runner, 0, len(m.matches))
	for _, r := range m.matches {
		runners = append(runners, r)
	}
	m.mu.RUnlock()

	// ksuids sort by creation time
	sort.Slice(runners, func(i, j int) bool { return runners[i].ID < runners[j].ID })
	list := make([]Info, 0, len(runners))
	for _, r := range runners {
		list = append(list, r.Info())
	}
	return list
}

// Shutdown stops every match and waits for them to finish
func (m *Manager) Shutdown() {
	m.mu.RLock()
	for _, r := range m.matches {
		r.Stop()
	}
	m.mu.RUnlock()
	m.wg.Wait()
}
