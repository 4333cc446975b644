package engine

import "context"

// AgentContext is what a decision agent gets to see each tick. Stats is a
// copy of the agent's own ship.
type AgentContext struct {
	Stats    Ship          `json:"stats"`
	Radar    []RadarResult `json:"radar"`
	Messages []any         `json:"messages"`
	Memory   any           `json:"memory"`
	Tick     int64         `json:"tick"`
}

// Response is an agent's answer. Memory replaces the ship's memory,
// Messages are sent on the team channel and Logs are published as events.
type Response struct {
	Instruction Instruction `json:"instruction"`
	Memory      any         `json:"memory,omitempty"`
	Messages    []any       `json:"messages,omitempty"`
	Logs        []string    `json:"logs,omitempty"`
}

// Agent decides what a ship does. Decide must honour ctx: once it is done
// the answer is discarded. Agents that also implement io.Closer are closed
// when the match ends.
type Agent interface {
	Decide(ctx context.Context, in AgentContext) (Response, error)
}

// AgentFunc adapts a function to Agent
type AgentFunc func(ctx context.Context, in AgentContext) (Response, error)

func (f AgentFunc) Decide(ctx context.Context, in AgentContext) (Response, error) {
	return f(ctx, in)
}
