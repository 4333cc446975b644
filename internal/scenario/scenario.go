package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"spacesim/internal/blueprint"
	"spacesim/internal/engine"
)

var (
	// ErrOverBudget is returned when a team's fleet costs more than the budget
	ErrOverBudget = errors.New("fleet over budget")
	ErrInvalid    = errors.New("invalid scenario")
)

const (
	DefaultWidth  = 4000
	DefaultHeight = 4000
	// spawn ring radius as a fraction of the smaller board side
	spawnRing = 0.35
	// spacing between ships of a team on the ring
	spawnSpacing = 48.0
)

// End conditions
const (
	EndLastTeamStanding = "last-team-standing"
	EndTimeLimit        = "time-limit"
	EndNever            = "never"
)

// Board is the playing area
type Board struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ShipSpec places one ship. Omitted coordinates are filled in from the
// team's spawn point.
type ShipSpec struct {
	ID        string   `yaml:"id"`
	Class     string   `yaml:"class"`
	X         *float64 `yaml:"x"`
	Y         *float64 `yaml:"y"`
	Direction *float64 `yaml:"direction"`
	Agent     string   `yaml:"agent"`
}

// TeamSpec is one team and its fleet
type TeamSpec struct {
	Name  string     `yaml:"name"`
	Ships []ShipSpec `yaml:"ships"`
}

// Scenario describes a match setup
type Scenario struct {
	Name     string     `yaml:"name"`
	Board    Board      `yaml:"board"`
	MaxSpeed float64    `yaml:"maxSpeed"`
	Budget   int        `yaml:"budget"`
	MaxTicks int64      `yaml:"maxTicks"`
	End      string     `yaml:"end"`
	Teams    []TeamSpec `yaml:"teams"`
}

// Assignment binds a ship to the name of its decision agent
type Assignment struct {
	ShipID string
	Team   string
	Agent  string
}

// Load reads a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scenario
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Board.Width <= 0 {
		s.Board.Width = DefaultWidth
	}
	if s.Board.Height <= 0 {
		s.Board.Height = DefaultHeight
	}
	if s.End == "" {
		s.End = EndLastTeamStanding
	}
	switch s.End {
	case EndLastTeamStanding, EndNever:
	case EndTimeLimit:
		if s.MaxTicks <= 0 {
			return fmt.Errorf("%w: end %q needs maxTicks", ErrInvalid, s.End)
		}
	default:
		return fmt.Errorf("%w: unknown end condition %q", ErrInvalid, s.End)
	}
	if len(s.Teams) == 0 {
		return fmt.Errorf("%w: no teams", ErrInvalid)
	}
	teams := make(map[string]bool)
	ids := make(map[string]bool)
	for _, team := range s.Teams {
		if team.Name == "" {
			return fmt.Errorf("%w: team without a name", ErrInvalid)
		}
		if teams[team.Name] {
			return fmt.Errorf("%w: duplicate team %q", ErrInvalid, team.Name)
		}
		teams[team.Name] = true
		for _, ship := range team.Ships {
			if ship.Class == "" {
				return fmt.Errorf("%w: team %q has a ship without a class", ErrInvalid, team.Name)
			}
			if ship.ID == "" {
				continue
			}
			if ids[ship.ID] {
				return fmt.Errorf("%w: duplicate ship id %q", ErrInvalid, ship.ID)
			}
			ids[ship.ID] = true
		}
	}
	return nil
}

// Cost returns the price of a team's fleet
func (s *Scenario) Cost(tables *blueprint.Tables, team TeamSpec) (int, error) {
	total := 0
	for _, ship := range team.Ships {
		price, err := tables.Price(ship.Class)
		if err != nil {
			return 0, err
		}
		total += price
	}
	return total, nil
}

// spawnPoint places team i of n on a ring around the board center,
// facing the center
func (s *Scenario) spawnPoint(i, n int) (engine.Point, float64) {
	cx, cy := s.Board.Width/2, s.Board.Height/2
	r := math.Min(s.Board.Width, s.Board.Height) * spawnRing
	a := engine.TwoPi * float64(i) / float64(n)
	p := engine.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	return p, engine.NormalizeDirection(a + math.Pi)
}

// Build creates the initial state and the agent roster
func (s *Scenario) Build(tables *blueprint.Tables) (engine.State, []Assignment, error) {
	st := engine.State{
		Size:     engine.Size{Width: s.Board.Width, Height: s.Board.Height},
		MaxSpeed: s.MaxSpeed,
	}
	var roster []Assignment
	for i, team := range s.Teams {
		cost, err := s.Cost(tables, team)
		if err != nil {
			return engine.State{}, nil, err
		}
		if s.Budget > 0 && cost > s.Budget {
			return engine.State{}, nil, fmt.Errorf("team %q costs %d of %d: %w", team.Name, cost, s.Budget, ErrOverBudget)
		}
		st.Teams = append(st.Teams, team.Name)

		spawn, facing := s.spawnPoint(i, len(s.Teams))
		for j, spec := range team.Ships {
			// line ships up across the facing direction
			offset := (float64(j) - float64(len(team.Ships)-1)/2) * spawnSpacing
			p := blueprint.Placement{
				ID:   spec.ID,
				Team: team.Name,
				Pos: engine.Point{
					X: spawn.X + offset*math.Cos(facing+math.Pi/2),
					Y: spawn.Y + offset*math.Sin(facing+math.Pi/2),
				},
				Direction: facing,
			}
			if spec.X != nil {
				p.Pos.X = *spec.X
			}
			if spec.Y != nil {
				p.Pos.Y = *spec.Y
			}
			if spec.Direction != nil {
				p.Direction = *spec.Direction
			}
			ship, err := tables.Build(spec.Class, p)
			if err != nil {
				return engine.State{}, nil, fmt.Errorf("team %q: %w", team.Name, err)
			}
			st.Ships = append(st.Ships, ship)
			roster = append(roster, Assignment{ShipID: ship.ID, Team: team.Name, Agent: spec.Agent})
		}
	}
	return st, roster, nil
}

// Ender returns the end-of-game predicate. A positive MaxTicks always
// caps the match.
func (s *Scenario) Ender() engine.EndFunc {
	var enders []engine.EndFunc
	if s.End == EndLastTeamStanding {
		enders = append(enders, engine.LastTeamStanding)
	}
	if s.MaxTicks > 0 {
		enders = append(enders, engine.TimeLimit(s.MaxTicks))
	}
	if len(enders) == 0 {
		return nil
	}
	return engine.AnyOf(enders...)
}
