package engine

// WeaponSlot is a weapon mounted on a ship. Bullet is the blueprint
// copied into every shot.
type WeaponSlot struct {
	Bullet   Bullet `json:"bullet"`
	Ammo     int    `json:"ammo"`
	CoolDown int    `json:"coolDown"`
}

// Ship is a controllable vessel. The ID is stable for the ship's lifetime;
// Signature is a content-derived hash exposed to radars instead of the ID.
// Stealth counts the frames the ship stays cloaked.
type Ship struct {
	ID           string       `json:"id"`
	Position     Position     `json:"position"`
	Stats        Stats        `json:"stats"`
	Destroyed    bool         `json:"destroyed"`
	Team         string       `json:"team"`
	BulletsFired int          `json:"bulletsFired"`
	Weapons      []WeaponSlot `json:"weapons"`
	Class        string       `json:"class"`
	Stealth      int          `json:"stealth"`
	Signature    string       `json:"signature"`
}

// Body returns the collision body of the ship
func (s Ship) Body() Body {
	return Body{Position: s.Position, Stats: s.Stats}
}

// Visible reports whether radars can see the ship
func (s Ship) Visible() bool {
	return s.Stealth == 0
}

// Step moves the ship one sub-step and cools its weapons down
func (s Ship) Step() Ship {
	weapons := make([]WeaponSlot, len(s.Weapons))
	for i, w := range s.Weapons {
		if w.CoolDown > 0 {
			w.CoolDown--
		} else {
			w.CoolDown = 0
		}
		weapons[i] = w
	}
	s.Weapons = weapons
	s.Position = Advance(s.Position)
	return s
}

// Clone returns a copy that shares no mutable memory with s
func (s Ship) Clone() Ship {
	if s.Weapons != nil {
		weapons := make([]WeaponSlot, len(s.Weapons))
		for i, w := range s.Weapons {
			w.Bullet = w.Bullet.Clone()
			weapons[i] = w
		}
		s.Weapons = weapons
	}
	return s
}
