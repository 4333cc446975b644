package engine

// EventKind tags an Event
type EventKind uint8

const (
	EventExplosion EventKind = iota + 1
	EventRemove
	EventEnd
	EventAgentLog
	EventAgentError
)

func (k EventKind) String() string {
	switch k {
	case EventExplosion:
		return "explosion"
	case EventRemove:
		return "remove"
	case EventEnd:
		return "end"
	case EventAgentLog:
		return "log"
	case EventAgentError:
		return "error"
	}
	return "unknown"
}

// Event is a notification published by the scheduler. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind      EventKind `json:"kind"`
	Tick      int64     `json:"tick"`
	ShipID    string    `json:"shipId,omitempty"`
	BulletID  string    `json:"bulletId,omitempty"`
	Position  Point     `json:"position"`
	BulletIDs []string  `json:"bulletIds,omitempty"`
	Lines     []string  `json:"lines,omitempty"`
	Error     string    `json:"error,omitempty"`
	Winners   []string  `json:"winners,omitempty"`
}

// Observer receives scheduler events. Notify runs on the stepping
// goroutine and must not call back into the engine.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }
