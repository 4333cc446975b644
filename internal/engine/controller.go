package engine

// ControllerKind names the guidance a bullet blueprint builds when fired
// with a target
type ControllerKind uint8

const (
	Straight ControllerKind = iota
	Torpedo
	Homing
	Mine
)

func (k ControllerKind) String() string {
	switch k {
	case Straight:
		return "straight"
	case Torpedo:
		return "torpedo"
	case Homing:
		return "homing"
	case Mine:
		return "mine"
	}
	return "unknown"
}

const (
	cruiseSpeed      = 0.6 // torpedoes thrust until they reach it
	cruiseBoost      = 0.1
	mineChaseSpeed   = 0.2
	mineDriftSpeed   = 0.1
	mineHoldRadiusSq = 1.0
)

// Controller is the per-bullet guidance state. Its memory (Target,
// ArmedTime) travels with the value: Advance returns the next state
// instead of mutating the receiver.
type Controller struct {
	Kind      ControllerKind `json:"kind"`
	Target    Point          `json:"target"`
	ArmedTime int            `json:"armedTime"`
}

var controllerFactory = map[ControllerKind]func(FireTarget) Controller{
	Torpedo: func(t FireTarget) Controller {
		return Controller{Kind: Torpedo, Target: t.Target, ArmedTime: t.ArmedTime}
	},
	Homing: func(t FireTarget) Controller {
		return Controller{Kind: Homing, Target: t.Target, ArmedTime: t.ArmedTime}
	},
	Mine: func(t FireTarget) Controller {
		return Controller{Kind: Mine, Target: t.Target, ArmedTime: t.ArmedTime}
	},
}

// BuildController returns fresh guidance for kind seeded with target, or
// nil when kind has no guidance
func BuildController(kind ControllerKind, target FireTarget) *Controller {
	build, ok := controllerFactory[kind]
	if !ok {
		return nil
	}
	c := build(target)
	return &c
}

// Advance evaluates the guidance for one sub-step
func (c Controller) Advance(b Bullet, radar []RadarResult) (Controller, Instruction) {
	switch c.Kind {
	case Torpedo:
		return c.torpedo(b)
	case Homing:
		return c.homing(b, radar)
	case Mine:
		return c.mine(b, radar)
	}
	return c, Idle()
}

func (c Controller) torpedo(b Bullet) (Controller, Instruction) {
	if b.Position.Speed < cruiseSpeed {
		return c, Thrust(cruiseBoost)
	}
	return c, TurnToTarget(b.Position, pointTarget(c.Target), 1)
}

func (c Controller) homing(b Bullet, radar []RadarResult) (Controller, Instruction) {
	if b.Position.Speed < cruiseSpeed {
		return c, Thrust(cruiseBoost)
	}
	c.ArmedTime--
	if c.ArmedTime < 0 {
		if near, ok := NearestEnemy(radar, b.Position.Pos, b.Team); ok {
			return c, TurnToTarget(b.Position, pointTarget(near.Position.Pos), 1)
		}
	}
	return c, TurnToTarget(b.Position, pointTarget(c.Target), 1)
}

func (c Controller) mine(b Bullet, radar []RadarResult) (Controller, Instruction) {
	controls := Controls{Stats: b.Stats}
	c.ArmedTime--
	if c.ArmedTime < 0 {
		if near, ok := NearestEnemy(radar, b.Position.Pos, b.Team); ok {
			if b.Position.Speed < mineChaseSpeed {
				return c, controls.Thrust(0)
			}
			return c, TurnToTarget(b.Position, pointTarget(near.Position.Pos), 1)
		}
	}

	if SquaredDistance(b.Position.Pos, c.Target) < mineHoldRadiusSq {
		if b.Position.Speed == 0 {
			return c, Idle()
		}
		return c, Thrust(-b.Position.Speed)
	}
	if b.Position.Speed < mineDriftSpeed {
		return c, Thrust(cruiseBoost)
	}
	return c, TurnToTarget(b.Position, pointTarget(c.Target), 1)
}
