package engine

import (
	"math"
)

// DefaultStealthTime is the number of ticks an action keeps a stealth
// capable ship cloaked
const DefaultStealthTime = 600

// ApplyTurn turns a position by delta, clamped to the turn rate
func ApplyTurn(p Position, s Stats, delta float64) Position {
	if delta > 0 {
		p.Direction = math.Mod(p.Direction+math.Min(delta, s.Turn)+TwoPi, TwoPi)
	} else {
		p.Direction = math.Mod(p.Direction+math.Max(delta, -s.Turn)+TwoPi, TwoPi)
	}
	p.Direction = NormalizeDirection(p.Direction)
	return p
}

// ApplyThrust changes speed by delta, clamped to the acceleration. A
// positive maxSpeed caps the resulting speed in both directions.
func ApplyThrust(p Position, s Stats, delta, maxSpeed float64) Position {
	p.Speed += Clamp(delta, -s.Acceleration, s.Acceleration)
	if maxSpeed > 0 {
		p.Speed = Clamp(p.Speed, -maxSpeed, maxSpeed)
	}
	return p
}

// ApplyFire fires the given weapon. It returns the ship unchanged and a nil
// bullet when the weapon cannot fire.
func ApplyFire(ship Ship, weapon int, target *FireTarget) (Ship, *Bullet) {
	if weapon < 0 || weapon >= len(ship.Weapons) {
		return ship, nil
	}
	slot := ship.Weapons[weapon]
	if slot.CoolDown > 0 || slot.Ammo <= 0 {
		return ship, nil
	}

	b := slot.Bullet.Clone()
	b.ID = bulletID(ship.ID, ship.BulletsFired)
	b.Team = ship.Team
	b.Armed = false
	b.Destroyed = false
	b.Distance = 0
	b.Controller = nil
	if target != nil {
		b.Controller = BuildController(b.Guidance, *target)
	}

	offset := ship.Stats.Size + b.Stats.Size
	b.Position = Position{
		Pos: Point{
			X: ship.Position.Pos.X + offset*math.Cos(ship.Position.Direction),
			Y: ship.Position.Pos.Y + offset*math.Sin(ship.Position.Direction),
		},
		Direction: ship.Position.Direction,
		Speed:     slot.Bullet.Position.Speed + ship.Position.Speed,
	}

	weapons := make([]WeaponSlot, len(ship.Weapons))
	copy(weapons, ship.Weapons)
	weapons[weapon].Ammo--
	weapons[weapon].CoolDown = b.CoolDown
	ship.Weapons = weapons
	ship.BulletsFired++
	return ship, &b
}

// ApplyInstruction applies a ship's instruction for this tick. Destroyed
// ships are returned untouched.
func ApplyInstruction(ship Ship, in Instruction, maxSpeed float64, stealthTime int) (Ship, *Bullet) {
	if ship.Destroyed {
		return ship, nil
	}
	if ship.Stats.Stealth && ship.Stealth > 0 {
		ship.Stealth--
	}
	acting := in.Kind == KindTurn || in.Kind == KindThrust || in.Kind == KindFire
	if acting && ship.Stats.Stealth {
		ship.Stealth = stealthTime
	}

	switch in.Kind {
	case KindTurn:
		ship.Position = ApplyTurn(ship.Position, ship.Stats, in.Arg)
	case KindThrust:
		ship.Position = ApplyThrust(ship.Position, ship.Stats, in.Arg, maxSpeed)
	case KindFire:
		return ApplyFire(ship, in.Weapon, in.Target)
	}
	return ship, nil
}

// applyBulletInstruction steers a guided bullet. Bullets cannot fire.
func applyBulletInstruction(b Bullet, in Instruction, maxSpeed float64) Bullet {
	switch in.Kind {
	case KindTurn:
		b.Position = ApplyTurn(b.Position, b.Stats, in.Arg)
	case KindThrust:
		b.Position = ApplyThrust(b.Position, b.Stats, in.Arg, maxSpeed)
	}
	return b
}
