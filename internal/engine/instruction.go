package engine

import "math"

// InstructionKind tags an Instruction
type InstructionKind uint8

const (
	KindIdle InstructionKind = iota
	KindTurn
	KindThrust
	KindFire
)

func (k InstructionKind) String() string {
	switch k {
	case KindIdle:
		return "IDLE"
	case KindTurn:
		return "TURN"
	case KindThrust:
		return "THRUST"
	case KindFire:
		return "FIRE"
	}
	return "UNKNOWN"
}

// FireTarget seeds the memory of a guided bullet
type FireTarget struct {
	Target    Point `json:"target"`
	ArmedTime int   `json:"armedTime"`
}

// Instruction is the single action a ship or a guided bullet performs per
// evaluation. Arg is the angle delta for Turn and the speed delta for
// Thrust; Weapon and Target are only read for Fire.
type Instruction struct {
	Kind   InstructionKind `json:"kind"`
	Arg    float64         `json:"arg,omitempty"`
	Weapon int             `json:"weapon,omitempty"`
	Target *FireTarget     `json:"target,omitempty"`
}

func Idle() Instruction {
	return Instruction{Kind: KindIdle}
}

func Turn(delta float64) Instruction {
	return Instruction{Kind: KindTurn, Arg: delta}
}

func Thrust(delta float64) Instruction {
	return Instruction{Kind: KindThrust, Arg: delta}
}

func Fire(weapon int, target *FireTarget) Instruction {
	return Instruction{Kind: KindFire, Weapon: weapon, Target: target}
}

// Valid reports whether the instruction can be applied. Anything else
// coming back from an agent is treated as Idle.
func (in Instruction) Valid() bool {
	if in.Kind > KindFire {
		return false
	}
	if math.IsNaN(in.Arg) || math.IsInf(in.Arg, 0) {
		return false
	}
	if in.Target != nil && (math.IsNaN(in.Target.Target.X) || math.IsNaN(in.Target.Target.Y)) {
		return false
	}
	return true
}

// Controls builds instructions with the item's own limits as defaults
type Controls struct {
	Stats Stats
}

func (c Controls) Idle() Instruction {
	return Idle()
}

// TurnLeft turns counter-clockwise; zero means full rate
func (c Controls) TurnLeft(arg float64) Instruction {
	if arg == 0 {
		arg = c.Stats.Turn
	}
	return Turn(arg)
}

// TurnRight turns clockwise; zero means full rate
func (c Controls) TurnRight(arg float64) Instruction {
	if arg == 0 {
		arg = c.Stats.Turn
	}
	return Turn(-arg)
}

// Thrust accelerates; zero means full acceleration
func (c Controls) Thrust(arg float64) Instruction {
	if arg == 0 {
		arg = c.Stats.Acceleration
	}
	return Thrust(arg)
}

func (c Controls) Fire(weapon int, target *FireTarget) Instruction {
	return Fire(weapon, target)
}
