package blueprint

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"spacesim/internal/engine"
)

// ShipOverride changes selected fields of a ship blueprint. A class that
// does not exist yet is created from the fields given.
type ShipOverride struct {
	Acceleration *float64  `toml:"acceleration"`
	Turn         *float64  `toml:"turn"`
	Size         *float64  `toml:"size"`
	Stealth      *bool     `toml:"stealth"`
	Detection    *float64  `toml:"detection"`
	Price        *int      `toml:"price"`
	Weapons      []Loadout `toml:"weapons"`
}

// BulletOverride changes selected fields of a bullet blueprint
type BulletOverride struct {
	Speed        *float64 `toml:"speed"`
	Size         *float64 `toml:"size"`
	Acceleration *float64 `toml:"acceleration"`
	Turn         *float64 `toml:"turn"`
	Detection    *float64 `toml:"detection"`
	Range        *float64 `toml:"range"`
	CoolDown     *int     `toml:"coolDown"`
	Guidance     *string  `toml:"guidance"`
}

// Overrides is the TOML document layout
type Overrides struct {
	Ships   map[string]ShipOverride   `toml:"ships"`
	Bullets map[string]BulletOverride `toml:"bullets"`
}

var guidanceByName = map[string]engine.ControllerKind{
	"straight": engine.Straight,
	"torpedo":  engine.Torpedo,
	"homing":   engine.Homing,
	"mine":     engine.Mine,
}

// LoadOverrides reads a TOML file and merges it into the tables
func (t *Tables) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overrides: %w", err)
	}
	return t.ApplyOverrides(data)
}

// ApplyOverrides merges a TOML document into the tables. Bullets are
// merged first so ships may mount new bullet classes. On error the
// tables are left unchanged.
func (t *Tables) ApplyOverrides(data []byte) error {
	var o Overrides
	if err := toml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse overrides: %w", err)
	}

	bullets := make(map[string]engine.Bullet, len(t.Bullets)+len(o.Bullets))
	for k, v := range t.Bullets {
		bullets[k] = v
	}
	for class, bo := range o.Bullets {
		b := bullets[class]
		b.Class = class
		setFloat(&b.Position.Speed, bo.Speed)
		setFloat(&b.Stats.Size, bo.Size)
		setFloat(&b.Stats.Acceleration, bo.Acceleration)
		setFloat(&b.Stats.Turn, bo.Turn)
		setFloat(&b.Stats.Detection, bo.Detection)
		setFloat(&b.Range, bo.Range)
		if bo.CoolDown != nil {
			b.CoolDown = *bo.CoolDown
		}
		if bo.Guidance != nil {
			kind, ok := guidanceByName[*bo.Guidance]
			if !ok {
				return fmt.Errorf("bullet %q: unknown guidance %q", class, *bo.Guidance)
			}
			b.Guidance = kind
		}
		bullets[class] = b
	}

	ships := make(map[string]ShipBlueprint, len(t.Ships)+len(o.Ships))
	for k, v := range t.Ships {
		ships[k] = v
	}
	for class, so := range o.Ships {
		bp := ships[class]
		bp.Class = class
		setFloat(&bp.Stats.Acceleration, so.Acceleration)
		setFloat(&bp.Stats.Turn, so.Turn)
		setFloat(&bp.Stats.Size, so.Size)
		setFloat(&bp.Stats.Detection, so.Detection)
		if so.Stealth != nil {
			bp.Stats.Stealth = *so.Stealth
		}
		if so.Price != nil {
			bp.Price = *so.Price
		}
		if so.Weapons != nil {
			for _, w := range so.Weapons {
				if _, ok := bullets[w.Bullet]; !ok {
					return fmt.Errorf("ship %q: bullet %q: %w", class, w.Bullet, ErrUnknownClass)
				}
			}
			bp.Weapons = append([]Loadout(nil), so.Weapons...)
		}
		ships[class] = bp
	}

	t.Bullets = bullets
	t.Ships = ships
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
