package blueprint

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"spacesim/internal/engine"
)

// Placement positions a new ship. An empty ID gets a random one.
type Placement struct {
	ID        string
	Team      string
	Pos       engine.Point
	Direction float64
}

// Build creates a ship of the given class from its blueprint
func (t *Tables) Build(class string, p Placement) (engine.Ship, error) {
	bp, err := t.Ship(class)
	if err != nil {
		return engine.Ship{}, err
	}
	weapons := make([]engine.WeaponSlot, 0, len(bp.Weapons))
	for _, w := range bp.Weapons {
		b, err := t.Bullet(w.Bullet)
		if err != nil {
			return engine.Ship{}, fmt.Errorf("ship %q weapon: %w", class, err)
		}
		weapons = append(weapons, engine.WeaponSlot{Bullet: b, Ammo: w.Ammo})
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	ship := engine.Ship{
		ID:    id,
		Class: bp.Class,
		Team:  p.Team,
		Position: engine.Position{
			Pos:       p.Pos,
			Direction: engine.NormalizeDirection(p.Direction),
		},
		Stats:   bp.Stats,
		Weapons: weapons,
	}
	ship.Signature = Signature(ship)
	return ship, nil
}

// Signature derives the opaque identity radars report for a ship
func Signature(s engine.Ship) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%s\x00%s", s.ID, s.Class, s.Team)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
