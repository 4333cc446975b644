package engine

// RadarResult is what a radar reports about a ship. It never carries the
// ship's ID.
type RadarResult struct {
	Position  Position `json:"position"`
	Size      float64  `json:"size"`
	Team      string   `json:"team"`
	Destroyed bool     `json:"destroyed"`
	Signature string   `json:"signature"`
}

// Radar returns the visible ships inside the detector's detection radius.
// selfID is skipped. A body without detection sees nothing.
func Radar(detector Body, selfID string, ships []Ship) []RadarResult {
	results := make([]RadarResult, 0)
	if detector.Stats.Detection <= 0 {
		return results
	}
	sensor := detector
	sensor.Stats.Size = detector.Stats.Detection
	for _, s := range ships {
		if s.ID == selfID || !s.Visible() {
			continue
		}
		if !Collides(sensor, s.Body()) {
			continue
		}
		results = append(results, RadarResult{
			Position:  s.Position,
			Size:      s.Stats.Size,
			Team:      s.Team,
			Destroyed: s.Destroyed,
			Signature: s.Signature,
		})
	}
	return results
}

// Contact is a radar result with its squared distance to the observer
type Contact struct {
	RadarResult
	Dist2 float64
}

// CloseEnemies returns the radar results not on team, in radar order.
// Destroyed ships are dropped unless all is set.
func CloseEnemies(radar []RadarResult, from Point, team string, all bool) []Contact {
	var contacts []Contact
	for _, r := range radar {
		if r.Destroyed && !all {
			continue
		}
		if team != "" && r.Team == team {
			continue
		}
		contacts = append(contacts, Contact{
			RadarResult: r,
			Dist2:       SquaredDistance(r.Position.Pos, from),
		})
	}
	return contacts
}

// NearestEnemy returns the closest live enemy on the radar
func NearestEnemy(radar []RadarResult, from Point, team string) (Contact, bool) {
	var best Contact
	found := false
	for _, c := range CloseEnemies(radar, from, team, false) {
		if !found || c.Dist2 < best.Dist2 {
			best = c
			found = true
		}
	}
	return best, found
}
