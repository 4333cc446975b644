package engine

import "sync"

// Message is one entry of a team channel
type Message struct {
	TimeSent int64 `json:"timeSent"`
	Payload  any   `json:"payload"`
}

// Channel is a team's append-only message log. Entries are never modified
// once appended.
type Channel struct {
	Team string

	mu      sync.RWMutex
	history []Message
}

// NewChannel creates an empty channel for a team
func NewChannel(team string) *Channel {
	return &Channel{Team: team}
}

// RestoreChannel creates a channel holding history, e.g. from a snapshot
func RestoreChannel(team string, history []Message) *Channel {
	c := &Channel{Team: team}
	c.history = append(c.history, history...)
	return c
}

// Send appends a payload stamped with the given tick
func (c *Channel) Send(tick int64, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Message{TimeSent: tick, Payload: payload})
}

// ReadSince returns, in append order, the messages sent strictly after tick
func (c *Channel) ReadSince(tick int64) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Message
	for _, m := range c.history {
		if m.TimeSent > tick {
			out = append(out, m)
		}
	}
	return out
}

// History returns a copy of every message on the channel
func (c *Channel) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// freeze returns a channel holding the messages sent so far. Sends on
// either channel are not seen by the other.
func (c *Channel) freeze() *Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.history)
	return &Channel{Team: c.Team, history: c.history[:n:n]}
}

// Len returns the number of messages sent on the channel
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}
