package engine

// Size is the board size
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// State is the whole simulated world. MaxSpeed caps speeds when positive.
// Comm holds one channel per team.
type State struct {
	Ships       []Ship              `json:"ships"`
	Bullets     []Bullet            `json:"bullets"`
	Size        Size                `json:"size"`
	MaxSpeed    float64             `json:"maxSpeed,omitempty"`
	Teams       []string            `json:"teams"`
	EndOfGame   bool                `json:"endOfGame"`
	TimeElapsed int64               `json:"timeElapsed"`
	Comm        map[string]*Channel `json:"-"`
}

// Clone returns a deep copy of the state. Channels are frozen at their
// current length; the copy shares the already sent entries.
func (s State) Clone() State {
	out := s
	if s.Ships != nil {
		out.Ships = make([]Ship, len(s.Ships))
		for i, ship := range s.Ships {
			out.Ships[i] = ship.Clone()
		}
	}
	if s.Bullets != nil {
		out.Bullets = make([]Bullet, len(s.Bullets))
		for i, b := range s.Bullets {
			out.Bullets[i] = b.Clone()
		}
	}
	if s.Teams != nil {
		out.Teams = append([]string(nil), s.Teams...)
	}
	if s.Comm != nil {
		out.Comm = make(map[string]*Channel, len(s.Comm))
		for team, ch := range s.Comm {
			out.Comm[team] = ch.freeze()
		}
	}
	return out
}

// Ship returns the ship with the given id
func (s *State) Ship(id string) (Ship, bool) {
	for _, ship := range s.Ships {
		if ship.ID == id {
			return ship, true
		}
	}
	return Ship{}, false
}

// AliveTeams returns the teams that still have a ship flying, in Teams
// order followed by any team only found on ships
func (s *State) AliveTeams() []string {
	alive := make(map[string]bool)
	for _, ship := range s.Ships {
		if !ship.Destroyed {
			alive[ship.Team] = true
		}
	}
	var out []string
	seen := make(map[string]bool)
	for _, team := range s.Teams {
		if alive[team] && !seen[team] {
			out = append(out, team)
			seen[team] = true
		}
	}
	for _, ship := range s.Ships {
		if alive[ship.Team] && !seen[ship.Team] {
			out = append(out, ship.Team)
			seen[ship.Team] = true
		}
	}
	return out
}

// channel returns the team's channel, creating it when missing
func (s *State) channel(team string) *Channel {
	if s.Comm == nil {
		s.Comm = make(map[string]*Channel)
	}
	ch, ok := s.Comm[team]
	if !ok {
		ch = NewChannel(team)
		s.Comm[team] = ch
	}
	return ch
}
