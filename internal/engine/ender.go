package engine

// EndFunc decides whether the match is over
type EndFunc func(State) bool

// LastTeamStanding ends the match once at most one team has a ship left
func LastTeamStanding(s State) bool {
	return len(s.AliveTeams()) <= 1
}

// TimeLimit ends the match after the given number of ticks
func TimeLimit(ticks int64) EndFunc {
	return func(s State) bool {
		return s.TimeElapsed >= ticks
	}
}

// AnyOf ends the match as soon as one of the predicates does
func AnyOf(enders ...EndFunc) EndFunc {
	return func(s State) bool {
		for _, end := range enders {
			if end != nil && end(s) {
				return true
			}
		}
		return false
	}
}
